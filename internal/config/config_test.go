package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, int32(2), cfg.Business.CurrencyPlaces)
	assert.Equal(t, 5, cfg.Business.DefaultGracePeriodDays)
	assert.Equal(t, 3, cfg.Business.LedgerMaxRetries)
	assert.Equal(t, 4, cfg.Business.PenaltyWorkers)
	assert.True(t, cfg.GetDailyPenaltyRate().Equal(decimal.NewFromInt(2)))
	assert.True(t, cfg.GetFallbackPrincipalRatio().Equal(decimal.RequireFromString("0.7")))
	assert.Equal(t, "0 0 0 * * *", cfg.Scheduler.PenaltyCron)
	assert.Equal(t, "Asia/Jakarta", cfg.GetSchedulerLocation().String())
	assert.Equal(t, 5*time.Second, cfg.GetHealthTimeout())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	logCfg := cfg.GetLoggerConfig()
	assert.Equal(t, "info", logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
	assert.Equal(t, "stdout", logCfg.Output)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_NAME", "lending.db")
	t.Setenv("CURRENCY_PLACES", "0")
	t.Setenv("FALLBACK_PRINCIPAL_RATIO", "0.6")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("PENALTY_WORKERS", "16")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "lending.db", cfg.Database.DSN())
	assert.Equal(t, int32(0), cfg.Business.CurrencyPlaces)
	assert.True(t, cfg.GetFallbackPrincipalRatio().Equal(decimal.RequireFromString("0.6")))
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 16, cfg.Business.PenaltyWorkers)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "DATABASE_DRIVER", "mysql"},
		{"bad penalty rate", "DAILY_PENALTY_RATE", "two"},
		{"negative penalty rate", "DAILY_PENALTY_RATE", "-1"},
		{"ratio above one", "FALLBACK_PRINCIPAL_RATIO", "1.5"},
		{"too many places", "CURRENCY_PLACES", "9"},
		{"negative grace", "DEFAULT_GRACE_PERIOD_DAYS", "-2"},
		{"no retries", "LEDGER_MAX_RETRIES", "0"},
		{"no workers", "PENALTY_WORKERS", "0"},
		{"bad cron", "PENALTY_CRON", "every day"},
		{"bad timezone", "SCHEDULER_TIMEZONE", "Mars/Olympus"},
		{"bad health timeout", "HEALTH_CHECK_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Driver: "postgres", Host: "db", Port: "5432", User: "lender", Password: "secret",
		Name: "lending_engine", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=lender password=secret dbname=lending_engine sslmode=disable", d.DSN())

	d.URL = "postgres://lender@db/lending_engine"
	assert.Equal(t, "postgres://lender@db/lending_engine", d.DSN())
}
