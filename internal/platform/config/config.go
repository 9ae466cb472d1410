package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Config captures engine-level settings sourced from the environment.
type Config struct {
	LogLevel  string
	LogFormat string

	// PostgresDSN selects the postgres-backed stores when set. Empty keeps
	// the engine on in-memory stores.
	PostgresDSN string

	Redis RedisConfig

	// DefaultTicketingFeePercent applies to settlements whose input does not
	// carry an explicit fee percent.
	DefaultTicketingFeePercent decimal.Decimal

	// RateTablePath points at a YAML per-diem rate table. Empty keeps the
	// built-in rates.
	RateTablePath string
}

// RedisConfig carries connection settings for the redis-backed sequence
// allocator. An empty Addr means redis is not configured.
type RedisConfig struct {
	Addr         string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

var defaultTicketingFeePercent = decimal.NewFromInt(5)

// FromEnv builds a Config from ROADBOOK_* environment variables so callers
// stay lean. Malformed or negative fee values fall back to the default.
func FromEnv() Config {
	level := os.Getenv("ROADBOOK_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("ROADBOOK_LOG_FORMAT")
	if format == "" {
		format = "text"
	}

	fee := defaultTicketingFeePercent
	if raw := os.Getenv("ROADBOOK_TICKETING_FEE_PERCENT"); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil && parsed.Sign() >= 0 {
			fee = parsed
		}
	}

	return Config{
		LogLevel:    level,
		LogFormat:   format,
		PostgresDSN: os.Getenv("ROADBOOK_POSTGRES_DSN"),
		Redis: RedisConfig{
			Addr:         os.Getenv("ROADBOOK_REDIS_ADDR"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		DefaultTicketingFeePercent: fee,
		RateTablePath:              os.Getenv("ROADBOOK_RATE_TABLE"),
	}
}
