package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"pushr/internal/api/middleware"
	"pushr/internal/engine/theft"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/audit"
	"pushr/internal/platform/models"
)

type TheftHandler struct {
	store *theft.Store
	audit *audit.Logger
}

func NewTheftHandler(store *theft.Store, auditLogger *audit.Logger) *TheftHandler {
	return &TheftHandler{store: store, audit: auditLogger}
}

// Beacon always answers with the pixel, even when the alert is lost.
func (h *TheftHandler) Beacon(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	referrer := q.Get("r")
	if referrer == "" {
		referrer = r.Referer()
	}

	err := h.store.Record(r.Context(), &models.TheftAlert{
		Domain:    q.Get("d"),
		URL:       q.Get("u"),
		Referrer:  referrer,
		IP:        middleware.ClientIPFrom(r.Context()),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to record theft beacon")
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(theft.Pixel)
}

func (h *TheftHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.List(r.Context())
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

func (h *TheftHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Clear(r.Context())
	if err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "theft.clear", "theft_alert", "", map[string]interface{}{"cleared": n})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "cleared": n})
}
