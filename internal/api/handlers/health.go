package handlers

import (
	"context"
	"net/http"
	"time"

	"pushr/internal/engine/push"
	"pushr/internal/platform/database"
)

type HealthHandler struct {
	db      *database.DB
	push    *push.Service
	started time.Time
}

func NewHealthHandler(db *database.DB, pushSvc *push.Service) *HealthHandler {
	return &HealthHandler{db: db, push: pushSvc, started: time.Now()}
}

// Status is the public liveness document served at the root.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	subscribers, _ := h.push.Count(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"service":     "pushr",
		"subscribers": subscribers,
		"uptime":      int64(time.Since(h.started).Seconds()),
	})
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "healthy"
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}
