package handlers

import (
	"net/http"

	"pushr/internal/engine/registry"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/audit"
	"pushr/internal/platform/models"
)

type RegistryHandler struct {
	blacklist *registry.Blacklist
	templates *registry.Templates
	audit     *audit.Logger
}

func NewRegistryHandler(blacklist *registry.Blacklist, templates *registry.Templates, auditLogger *audit.Logger) *RegistryHandler {
	return &RegistryHandler{blacklist: blacklist, templates: templates, audit: auditLogger}
}

func (h *RegistryHandler) ListBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blacklist.List(r.Context())
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blacklist": entries})
}

type blacklistRequest struct {
	IP    string `json:"ip"`
	Label string `json:"label"`
}

func (h *RegistryHandler) AddBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := decodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	entry, err := h.blacklist.Add(r.Context(), req.IP, req.Label)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "blacklist.add", "blacklist", entry.ID, map[string]interface{}{"ip": entry.IP})
	writeJSON(w, http.StatusCreated, entry)
}

func (h *RegistryHandler) RemoveBlacklist(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if err := h.blacklist.Remove(r.Context(), id); err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "blacklist.remove", "blacklist", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RegistryHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

func (h *RegistryHandler) AddTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.PushTemplate
	if err := decodeJSON(r, &tpl); err != nil {
		errors.Respond(w, err)
		return
	}

	created, err := h.templates.Create(r.Context(), &tpl)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "template.add", "template", created.ID, map[string]interface{}{"name": created.Name})
	writeJSON(w, http.StatusCreated, created)
}

func (h *RegistryHandler) RemoveTemplate(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")
	if err := h.templates.Delete(r.Context(), id); err != nil {
		errors.Respond(w, err)
		return
	}

	record(h.audit, r, "template.remove", "template", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
