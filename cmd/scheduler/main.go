package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/scheduler"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	schedLog := logger.WithComponent("scheduler-main")
	schedLog.Info().Msg("starting penalty scheduler")

	db, err := app.OpenDB(cfg)
	if err != nil {
		schedLog.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := app.Prepare(context.Background(), db); err != nil {
		schedLog.Fatal().Err(err).Msg("failed to prepare database")
	}

	redisClient, err := app.OpenRedis(cfg)
	if err != nil {
		schedLog.Fatal().Err(err).Msg("failed to initialize redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	billingService := app.NewBillingService(cfg, db, redisClient)

	s, err := scheduler.New(cfg, billingService)
	if err != nil {
		schedLog.Fatal().Err(err).Msg("failed to schedule jobs")
	}
	s.Start()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	schedLog.Info().Msg("shutting down scheduler")
	s.Stop()
}
