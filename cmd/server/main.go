package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"pushr/internal/api"
	"pushr/internal/api/handlers"
	"pushr/internal/api/middleware"
	"pushr/internal/engine/analytics"
	"pushr/internal/engine/conversions"
	"pushr/internal/engine/events"
	"pushr/internal/engine/leads"
	"pushr/internal/engine/push"
	"pushr/internal/engine/registry"
	"pushr/internal/engine/theft"
	"pushr/internal/pkg/logger"
	"pushr/internal/platform/audit"
	"pushr/internal/platform/auth"
	"pushr/internal/platform/config"
	"pushr/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	if cfg.Push.VAPIDPublicKey == "" || cfg.Push.VAPIDPrivateKey == "" {
		log.Warn().Msg("VAPID keys are not configured, push delivery will fail")
	}
	if cfg.Admin.PasswordHash == "" {
		log.Warn().Msg("admin.password_hash is empty, operator login is disabled")
	}

	// Registries
	blacklist := registry.NewBlacklist(db, cfg.Events.BlacklistCacheTTL)
	templates := registry.NewTemplates(db)

	// Services
	subscriptions := push.NewRepository(db)
	dispatcher := push.NewDispatcher(subscriptions, push.NewWebPushTransport(cfg.Push), push.NewStats(), push.Defaults{
		Icon:  cfg.Push.DefaultIcon,
		Badge: cfg.Push.DefaultBadge,
		URL:   cfg.Push.DefaultURL,
	}, cfg.Push.Parallelism)
	pushSvc := push.NewService(subscriptions, dispatcher, templates)

	reporter := conversions.NewReporter(cfg.Conversions)
	leadSvc := leads.NewService(leads.NewRepository(db), reporter, cfg.Conversions.Timeout)
	eventSvc := events.NewService(events.NewRepository(db), blacklist, cfg.Events.ResetPhrase)
	analyticsSvc := analytics.NewService(db, cfg.Analytics.Location())
	theftStore := theft.NewStore(db)

	tokenSvc := auth.NewTokenService(cfg.JWT)
	auditLogger := audit.NewLogger(db)

	rateLimiter := middleware.NewRateLimiter(map[string]int{
		api.LimitIngest:    cfg.RateLimit.IngestPerMinute,
		api.LimitSubscribe: cfg.RateLimit.SubscribePerMinute,
		api.LimitLogin:     cfg.RateLimit.LoginPerMinute,
	})
	defer rateLimiter.Stop()

	deps := &api.Dependencies{
		PushHandler:      handlers.NewPushHandler(pushSvc, auditLogger, cfg.Push.VAPIDPublicKey, cfg.Push.SendTimeout),
		LeadHandler:      handlers.NewLeadHandler(leadSvc, auditLogger),
		EventHandler:     handlers.NewEventHandler(eventSvc, auditLogger),
		AnalyticsHandler: handlers.NewAnalyticsHandler(analyticsSvc, pushSvc, leadSvc, eventSvc, cfg.Analytics.Timeout),
		RegistryHandler:  handlers.NewRegistryHandler(blacklist, templates, auditLogger),
		TheftHandler:     handlers.NewTheftHandler(theftStore, auditLogger),
		AuthHandler:      handlers.NewAuthHandler(tokenSvc, cfg.Admin.PasswordHash),
		AuditHandler:     handlers.NewAuditHandler(auditLogger),
		HealthHandler:    handlers.NewHealthHandler(db, pushSvc),
		MetricsHandler:   handlers.NewMetricsHandler(),
		AuthMiddleware:   middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:      rateLimiter,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewHandler(router, cfg.CORS),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Str("driver", string(db.Dialect)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	auditLogger.Wait()
}
