package config

import (
	"fmt"
	"net"
	"time"
	_ "time/tzdata"

	"github.com/segyhp/lending-engine/internal/logger"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"DATABASE_DRIVER"`
	URL             string        `mapstructure:"DATABASE_URL"`
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"REDIS_ENABLED"`
	URL      string        `mapstructure:"REDIS_URL"`
	Host     string        `mapstructure:"REDIS_HOST"`
	Port     string        `mapstructure:"REDIS_PORT"`
	Password string        `mapstructure:"REDIS_PASSWORD"`
	DB       int           `mapstructure:"REDIS_DB"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

type SchedulerConfig struct {
	PenaltyCron string `mapstructure:"PENALTY_CRON"`
	Timezone    string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"LOG_LEVEL"`
	Format     string `mapstructure:"LOG_FORMAT"`
	TimeFormat string `mapstructure:"LOG_TIME_FORMAT"`
	Output     string `mapstructure:"LOG_OUTPUT"`
}

type BusinessConfig struct {
	CurrencyPlaces         int32  `mapstructure:"CURRENCY_PLACES"`
	DailyPenaltyRate       string `mapstructure:"DAILY_PENALTY_RATE"`
	DefaultGracePeriodDays int    `mapstructure:"DEFAULT_GRACE_PERIOD_DAYS"`
	FallbackPrincipalRatio string `mapstructure:"FALLBACK_PRINCIPAL_RATIO"`
	LedgerMaxRetries       int    `mapstructure:"LEDGER_MAX_RETRIES"`
	PenaltyWorkers         int    `mapstructure:"PENALTY_WORKERS"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "lending_engine")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("PENALTY_CRON", "0 0 0 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_TIME_FORMAT", time.RFC3339)
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("CURRENCY_PLACES", 2)
	v.SetDefault("DAILY_PENALTY_RATE", "2")
	v.SetDefault("DEFAULT_GRACE_PERIOD_DAYS", 5)
	v.SetDefault("FALLBACK_PRINCIPAL_RATIO", "0.70")
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("PENALTY_WORKERS", 4)
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	v.AutomaticEnv()

	// Try to read from .env file (optional)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DATABASE_HOST is required for %s", c.Database.Driver)
		}
	case "sqlite3":
		if c.Database.URL == "" && c.Database.Name == "" {
			return fmt.Errorf("DATABASE_URL or DATABASE_NAME is required for sqlite3")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of postgres, pgx, sqlite3, got %q", c.Database.Driver)
	}

	if c.Business.CurrencyPlaces < 0 || c.Business.CurrencyPlaces > 8 {
		return fmt.Errorf("CURRENCY_PLACES must be between 0 and 8")
	}

	rate, err := decimal.NewFromString(c.Business.DailyPenaltyRate)
	if err != nil {
		return fmt.Errorf("DAILY_PENALTY_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("DAILY_PENALTY_RATE must not be negative")
	}

	ratio, err := decimal.NewFromString(c.Business.FallbackPrincipalRatio)
	if err != nil {
		return fmt.Errorf("FALLBACK_PRINCIPAL_RATIO must be a valid decimal: %w", err)
	}
	if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("FALLBACK_PRINCIPAL_RATIO must be between 0 and 1")
	}

	if c.Business.DefaultGracePeriodDays < 0 {
		return fmt.Errorf("DEFAULT_GRACE_PERIOD_DAYS must not be negative")
	}

	if c.Business.LedgerMaxRetries <= 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must be greater than 0")
	}

	if c.Business.PenaltyWorkers <= 0 {
		return fmt.Errorf("PENALTY_WORKERS must be greater than 0")
	}

	// Validate scheduler expression and timezone
	if _, err := cronParser.Parse(c.Scheduler.PenaltyCron); err != nil {
		return fmt.Errorf("PENALTY_CRON must be a valid cron expression: %w", err)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid timezone: %w", err)
	}

	// Validate health check timeout
	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// DSN returns the connection string for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite3" {
		return d.Name
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Addr returns the host:port of the Redis server
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetDailyPenaltyRate returns the daily penalty rate in percent
func (c *Config) GetDailyPenaltyRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.DailyPenaltyRate)
	return rate
}

// GetFallbackPrincipalRatio returns the principal share used for unmatched payments
func (c *Config) GetFallbackPrincipalRatio() decimal.Decimal {
	ratio, _ := decimal.NewFromString(c.Business.FallbackPrincipalRatio)
	return ratio
}

// GetSchedulerLocation returns the timezone the penalty job runs in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetLoggerConfig maps logging settings onto the logger package
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		TimeFormat: c.Logging.TimeFormat,
		Output:     c.Logging.Output,
	}
}
