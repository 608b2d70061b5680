// Package config loads runtime configuration from IDLECORE_* environment
// variables.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
)

// Save backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var backends = []string{BackendMemory, BackendSQLite, BackendRedis, BackendPostgres}

// Config is the process configuration.
type Config struct {
	Environment string `env:"IDLECORE_ENV"       envDefault:"development"`
	LogLevel    string `env:"IDLECORE_LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"IDLECORE_LOG_FILE"`
	ContentDir  string `env:"IDLECORE_CONTENT_DIR"`

	SaveBackend   string `env:"IDLECORE_SAVE_BACKEND"   envDefault:"sqlite"`
	SQLitePath    string `env:"IDLECORE_SQLITE_PATH"    envDefault:"idlecore.db"`
	RedisAddr     string `env:"IDLECORE_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"IDLECORE_REDIS_PASSWORD"`
	RedisDB       int    `env:"IDLECORE_REDIS_DB"       envDefault:"0"`
	PostgresDSN   string `env:"IDLECORE_POSTGRES_DSN"`

	SaveSlot         string        `env:"IDLECORE_SAVE_SLOT"         envDefault:"autosave"`
	AutosaveInterval time.Duration `env:"IDLECORE_AUTOSAVE_INTERVAL" envDefault:"30s"`
	Seed             int64         `env:"IDLECORE_SEED"              envDefault:"0"`

	HTTPAddr string `env:"IDLECORE_HTTP_ADDR" envDefault:":8080"`
	WSAddr   string `env:"IDLECORE_WS_ADDR"   envDefault:":8081"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the save backend settings.
func (c Config) Validate() error {
	if !slices.Contains(backends, c.SaveBackend) {
		return fmt.Errorf("unknown save backend %q (want one of %v)", c.SaveBackend, backends)
	}
	if c.SaveBackend == BackendPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("save backend postgres requires IDLECORE_POSTGRES_DSN")
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("autosave interval must not be negative")
	}
	return nil
}

// Production reports whether the environment is production.
func (c Config) Production() bool {
	return c.Environment == "production"
}
