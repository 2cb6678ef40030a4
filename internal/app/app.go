package app

import (
	"context"
	"fmt"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
)

// OpenDB connects with the configured driver and applies pool settings
func OpenDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.Driver == "sqlite3" {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

// OpenRedis returns nil when caching is disabled
func OpenRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}), nil
}

// Prepare creates the schema and seeds the chart of accounts
func Prepare(ctx context.Context, db *sqlx.DB) error {
	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}
	return repository.NewLedgerRepository(db).SeedChart(ctx)
}

// NewBillingService wires repositories, cache and ledger into the service.
// All three stores share db, so each unit of work commits as one transaction.
func NewBillingService(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client) *service.BillingService {
	var cache repository.ScheduleCache
	if redisClient != nil {
		cache = repository.NewRedisScheduleCache(redisClient, cfg.Redis.CacheTTL)
	} else {
		log := logger.WithComponent("app")
		log.Info().Msg("redis disabled, using in-process schedule cache")
		cache = repository.NewMemoryScheduleCache()
	}

	return service.NewBillingService(
		repository.NewLoanRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewTransactor(db),
		cache,
		cfg,
	)
}
