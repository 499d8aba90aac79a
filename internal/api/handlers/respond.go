package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	apiContext "pushr/internal/api/context"
	"pushr/internal/api/middleware"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/audit"
)

// maxBodyBytes caps request bodies on every JSON endpoint.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Invalid("", "unreadable request body")
	}
	return body, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Invalid("", "invalid request body")
	}
	return nil
}

func param(r *http.Request, name string) string {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return ps.ByName(name)
}

// detached keeps the request values but survives a client disconnect;
// only timeout bounds the work.
func detached(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func record(l *audit.Logger, r *http.Request, action, resourceType, resourceID string, meta map[string]interface{}) {
	if l == nil {
		return
	}
	actor := ""
	if claims := middleware.ClaimsFrom(r.Context()); claims != nil {
		actor = claims.Subject
	}
	l.Log(audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
		IPAddress:    middleware.ClientIPFrom(r.Context()),
		UserAgent:    r.UserAgent(),
	})
}
