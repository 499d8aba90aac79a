package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	apiContext "pushr/internal/api/context"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/auth"
)

// AuthMiddleware guards operator routes.
type AuthMiddleware struct {
	tokenSvc *auth.TokenService
}

func NewAuthMiddleware(tokenSvc *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", "Missing authorization header"
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "Invalid authorization header format"
	}
	return token, ""
}

// Handle admits only requests carrying a valid token with the admin role.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, problem := bearerToken(r)
		if problem != "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, problem, nil)
			return
		}

		claims, err := m.tokenSvc.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected operator token")
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}
		if claims.Role != auth.RoleAdmin {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), apiContext.Claims, claims)))
	}
}

// ClaimsFrom returns the operator claims set by Handle, if any.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(apiContext.Claims).(*auth.Claims)
	return claims
}
