package handlers

import (
	"net/http"
	"time"

	"pushr/internal/engine/push"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/audit"
)

type PushHandler struct {
	service     *push.Service
	audit       *audit.Logger
	publicKey   string
	sendTimeout time.Duration
}

func NewPushHandler(service *push.Service, auditLogger *audit.Logger, publicKey string, sendTimeout time.Duration) *PushHandler {
	return &PushHandler{
		service:     service,
		audit:       auditLogger,
		publicKey:   publicKey,
		sendTimeout: sendTimeout,
	}
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	total, err := h.service.Subscribe(r.Context(), body)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "total": total})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	removed, total, err := h.service.Unsubscribe(r.Context(), req.Endpoint)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "removed": removed, "total": total})
}

func (h *PushHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.publicKey})
}

type sendResponse struct {
	Success bool `json:"success"`
	*push.Result
}

func (h *PushHandler) Send(w http.ResponseWriter, r *http.Request) {
	var msg push.Message
	if err := decodeJSON(r, &msg); err != nil {
		errors.Respond(w, err)
		return
	}

	ctx, cancel := detached(r, h.sendTimeout)
	defer cancel()

	result, err := h.service.Send(ctx, msg)
	if err != nil && result == nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "push.send", "push", "", map[string]interface{}{
		"title": msg.Title, "sent": result.Sent, "errors": result.Errors, "cleaned": result.Cleaned,
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Success: true, Result: result})
}

func (h *PushHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")

	ctx, cancel := detached(r, h.sendTimeout)
	defer cancel()

	result, err := h.service.SendTemplate(ctx, id)
	if err != nil && result == nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "push.send_template", "template", id, map[string]interface{}{
		"sent": result.Sent, "errors": result.Errors, "cleaned": result.Cleaned,
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Success: true, Result: result})
}
