package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"pushr/internal/engine/push"
	"pushr/internal/engine/registry"
	"pushr/internal/pkg/logger"
	"pushr/internal/platform/config"
	"pushr/internal/platform/database"
	"pushr/internal/workers"
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

	broadcasts, err := workers.ParseBroadcasts(cfg.Scheduler.Broadcasts)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scheduler configuration")
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	subscriptions := push.NewRepository(db)
	dispatcher := push.NewDispatcher(subscriptions, push.NewWebPushTransport(cfg.Push), push.NewStats(), push.Defaults{
		Icon:  cfg.Push.DefaultIcon,
		Badge: cfg.Push.DefaultBadge,
		URL:   cfg.Push.DefaultURL,
	}, cfg.Push.Parallelism)
	pushSvc := push.NewService(subscriptions, dispatcher, registry.NewTemplates(db))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int("broadcasts", len(broadcasts)).Msg("starting broadcast scheduler")
	workers.NewScheduler(pushSvc, broadcasts, cfg.Analytics.Location(), cfg.Push.SendTimeout).Run(ctx)
	log.Info().Msg("scheduler stopped")
}
