package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"pushr/internal/api/middleware"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/auth"
)

// operatorSubject names the single operator account in tokens and audit
// entries.
const operatorSubject = "admin"

type AuthHandler struct {
	tokenSvc     *auth.TokenService
	passwordHash string
}

func NewAuthHandler(tokenSvc *auth.TokenService, passwordHash string) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc, passwordHash: passwordHash}
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	if err := auth.CheckPassword(h.passwordHash, req.Password); err != nil {
		log.Warn().Str("ip", middleware.ClientIPFrom(r.Context())).Msg("rejected operator login")
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	token, expiresAt, err := h.tokenSvc.GenerateAccessToken(operatorSubject, auth.RoleAdmin)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}
