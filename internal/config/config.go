// Package config loads server configuration from the environment. A local
// .env file, when present, is folded in first so development setups don't
// need exported variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the daemon needs at startup.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"CARDTABLE_ADDR" envDefault:":8090"`

	// RedisURL is the session store connection string, e.g.
	// redis://localhost:6379/0.
	RedisURL string `env:"CARDTABLE_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// DatabaseURL enables Postgres archival of finished sessions when
	// non-empty. Archival is best-effort and optional.
	DatabaseURL string `env:"CARDTABLE_DATABASE_URL"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `env:"CARDTABLE_LOG_LEVEL" envDefault:"info"`

	// LogJSON switches the log formatter to JSON for collection.
	LogJSON bool `env:"CARDTABLE_LOG_JSON" envDefault:"false"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
