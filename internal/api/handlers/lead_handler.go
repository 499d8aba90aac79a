package handlers

import (
	"net/http"
	"strconv"

	"pushr/internal/api/middleware"
	"pushr/internal/engine/leads"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/audit"
	"pushr/internal/platform/models"
)

type LeadHandler struct {
	service *leads.Service
	audit   *audit.Logger
}

func NewLeadHandler(service *leads.Service, auditLogger *audit.Logger) *LeadHandler {
	return &LeadHandler{service: service, audit: auditLogger}
}

func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	if err := decodeJSON(r, &lead); err != nil {
		errors.Respond(w, err)
		return
	}

	total, err := h.service.Submit(r.Context(), &lead, leads.Submission{
		IP:        middleware.ClientIPFrom(r.Context()),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "total": total})
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.service.List(r.Context(), leads.Filter{
		Buyer:  q.Get("buyer"),
		Geo:    q.Get("geo"),
		Status: q.Get("status"),
		Limit:  limit,
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *LeadHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	leadID := param(r, "lead_id")

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	if err := h.service.SetStatus(r.Context(), leadID, req.Status); err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "lead.status", "lead", leadID, map[string]interface{}{"status": req.Status})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
