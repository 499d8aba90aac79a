package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	apiContext "pushr/internal/api/context"
	"pushr/internal/pkg/parser"
)

// ResolveClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the peer address. The result is in canonical form.
func ResolveClientIP(r *http.Request) string {
	return parser.CanonicalIP(rawClientIP(r))
}

func rawClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIP stores the resolved caller address on the request context.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), apiContext.ClientIP, ResolveClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(apiContext.ClientIP).(string)
	return ip
}
