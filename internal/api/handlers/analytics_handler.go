package handlers

import (
	"net/http"
	"time"

	"pushr/internal/engine/analytics"
	"pushr/internal/engine/events"
	"pushr/internal/engine/leads"
	"pushr/internal/engine/push"
	"pushr/internal/pkg/errors"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
	push      *push.Service
	leads     *leads.Service
	events    *events.Service
	timeout   time.Duration
}

// NewAnalyticsHandler builds the handler. timeout bounds one report; zero
// leaves it unbounded.
func NewAnalyticsHandler(analyticsSvc *analytics.Service, pushSvc *push.Service, leadSvc *leads.Service, eventSvc *events.Service, timeout time.Duration) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analyticsSvc,
		push:      pushSvc,
		leads:     leadSvc,
		events:    eventSvc,
		timeout:   timeout,
	}
}

func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := detached(r, h.timeout)
	defer cancel()

	report, err := h.analytics.Report(ctx, r.URL.Query().Get("period"))
	if err != nil {
		errors.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type statsResponse struct {
	Subscribers int        `json:"subscribers"`
	TotalLeads  int        `json:"totalLeads"`
	TotalEvents int        `json:"totalEvents"`
	TotalSent   int64      `json:"totalSent"`
	TotalErrors int64      `json:"totalErrors"`
	LastSentAt  *time.Time `json:"lastSentAt"`
}

func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribers, err := h.push.Count(ctx)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	totalLeads, err := h.leads.Count(ctx)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	totalEvents, err := h.events.Count(ctx)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	snap := h.push.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		Subscribers: subscribers,
		TotalLeads:  totalLeads,
		TotalEvents: totalEvents,
		TotalSent:   snap.TotalSent,
		TotalErrors: snap.TotalErrors,
		LastSentAt:  snap.LastSentAt,
	})
}
