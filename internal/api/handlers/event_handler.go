package handlers

import (
	"net/http"

	"pushr/internal/api/middleware"
	"pushr/internal/engine/events"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/audit"
)

type EventHandler struct {
	service *events.Service
	audit   *audit.Logger
}

func NewEventHandler(service *events.Service, auditLogger *audit.Logger) *EventHandler {
	return &EventHandler{service: service, audit: auditLogger}
}

func (h *EventHandler) Track(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	err = h.service.Track(r.Context(), body, events.RequestMeta{
		IP:        middleware.ClientIPFrom(r.Context()),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type resetRequest struct {
	Confirm string `json:"confirm"`
}

func (h *EventHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	cleared, err := h.service.Reset(r.Context(), req.Confirm)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "events.reset", "events", "", map[string]interface{}{"cleared": cleared})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "cleared": cleared})
}

func (h *EventHandler) Restore(w http.ResponseWriter, r *http.Request) {
	restored, err := h.service.Restore(r.Context())
	if errors.IsNotFound(err) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "No backup to restore", nil)
		return
	}
	if err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "events.restore", "events", "", map[string]interface{}{"restored": restored})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "restored": restored})
}

func (h *EventHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.BackupStatus(r.Context())
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
