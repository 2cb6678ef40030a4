package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/lending-engine/internal/app"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	srvLog := logger.WithComponent("server")

	// Initialize database
	db, err := app.OpenDB(cfg)
	if err != nil {
		srvLog.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	if err := app.Prepare(context.Background(), db); err != nil {
		srvLog.Fatal().Err(err).Msg("failed to prepare database")
	}

	// Initialize Redis
	redisClient, err := app.OpenRedis(cfg)
	if err != nil {
		srvLog.Fatal().Err(err).Msg("failed to initialize redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	billingService := app.NewBillingService(cfg, db, redisClient)
	billingHandler := handler.NewBillingHandler(billingService, cfg)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	router := handler.SetupRoutes(billingHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		srvLog.Info().Str("addr", server.Addr).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvLog.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	srvLog.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		srvLog.Fatal().Err(err).Msg("server forced to shutdown")
	}

	srvLog.Info().Msg("server exited")
}
