package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/cors"
	"github.com/julienschmidt/httprouter"
	apiContext "pushr/internal/api/context"
	"pushr/internal/api/handlers"
	"pushr/internal/api/middleware"
	"pushr/internal/pkg/errors"
	"pushr/internal/platform/config"
	"pushr/internal/platform/metrics"
)

// Rate limit classes.
const (
	LimitIngest    = "ingest"
	LimitSubscribe = "subscribe"
	LimitLogin     = "login"
)

type Dependencies struct {
	PushHandler      *handlers.PushHandler
	LeadHandler      *handlers.LeadHandler
	EventHandler     *handlers.EventHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	RegistryHandler  *handlers.RegistryHandler
	TheftHandler     *handlers.TheftHandler
	AuthHandler      *handlers.AuthHandler
	AuditHandler     *handlers.AuditHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   *handlers.MetricsHandler
	AuthMiddleware   *middleware.AuthMiddleware
	RateLimiter      *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	admin := deps.AuthMiddleware.Handle
	limit := deps.RateLimiter.Limit

	// Health and metrics
	router.GET("/", wrap("/", deps.HealthHandler.Status))
	router.GET("/healthz", wrap("/healthz", deps.HealthHandler.Check))
	router.GET("/metrics", wrap("/metrics", deps.MetricsHandler.Export))

	// Push subscriptions
	router.POST("/api/subscribe", chain("/api/subscribe", deps.PushHandler.Subscribe, limit(LimitSubscribe)))
	router.POST("/api/unsubscribe", wrap("/api/unsubscribe", deps.PushHandler.Unsubscribe))
	router.GET("/api/vapid-public-key", wrap("/api/vapid-public-key", deps.PushHandler.PublicKey))
	router.POST("/api/send", chain("/api/send", deps.PushHandler.Send, admin))

	// Ingestion
	router.POST("/api/track", chain("/api/track", deps.EventHandler.Track, limit(LimitIngest)))
	router.POST("/api/leads", chain("/api/leads", deps.LeadHandler.Submit, limit(LimitIngest)))
	router.GET("/t.gif", wrap("/t.gif", deps.TheftHandler.Beacon))

	// Leads
	router.GET("/api/leads", chain("/api/leads", deps.LeadHandler.List, admin))
	router.PATCH("/api/leads/:lead_id/status", chain("/api/leads/:lead_id/status", deps.LeadHandler.SetStatus, admin))

	// Analytics
	router.GET("/api/analytics", chain("/api/analytics", deps.AnalyticsHandler.Report, admin))
	router.GET("/api/stats", chain("/api/stats", deps.AnalyticsHandler.Stats, admin))

	// Blacklist
	router.GET("/api/blacklist", chain("/api/blacklist", deps.RegistryHandler.ListBlacklist, admin))
	router.POST("/api/blacklist", chain("/api/blacklist", deps.RegistryHandler.AddBlacklist, admin))
	router.DELETE("/api/blacklist/:id", chain("/api/blacklist/:id", deps.RegistryHandler.RemoveBlacklist, admin))

	// Templates
	router.GET("/api/templates", chain("/api/templates", deps.RegistryHandler.ListTemplates, admin))
	router.POST("/api/templates", chain("/api/templates", deps.RegistryHandler.AddTemplate, admin))
	router.DELETE("/api/templates/:id", chain("/api/templates/:id", deps.RegistryHandler.RemoveTemplate, admin))
	router.POST("/api/templates/:id/send", chain("/api/templates/:id/send", deps.PushHandler.SendTemplate, admin))

	// Theft alerts
	router.GET("/api/theft", chain("/api/theft", deps.TheftHandler.List, admin))
	router.DELETE("/api/theft", chain("/api/theft", deps.TheftHandler.Clear, admin))

	// Event store maintenance
	router.POST("/api/events/reset", chain("/api/events/reset", deps.EventHandler.Reset, admin))
	router.POST("/api/events/restore", chain("/api/events/restore", deps.EventHandler.Restore, admin))
	router.GET("/api/events/backup", chain("/api/events/backup", deps.EventHandler.BackupStatus, admin))

	// Operator
	router.POST("/api/admin/login", chain("/api/admin/login", deps.AuthHandler.Login, limit(LimitLogin)))
	router.GET("/api/admin/audit", chain("/api/admin/audit", deps.AuditHandler.List, admin))

	return router
}

// NewHandler wraps the router with the cross-cutting layers every request
// passes through.
func NewHandler(router http.Handler, cfg config.CORSConfig) http.Handler {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
		MaxAge:         cfg.MaxAge,
	})
	return middleware.ClientIP(corsHandler(router))
}

// Helper function to chain middlewares
func chain(route string, handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(route, handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(route string, handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(rec, r.WithContext(ctx))
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status/100)+"xx").Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
