// Package config resolves process configuration once at startup.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mcdev12/castaway/go/internal/dbconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is shared by every binary; each reads the fields it needs.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DocstoreDriver string `env:"DOCSTORE_DRIVER" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"castaway.db"`
	NatsURL        string `env:"NATS_URL"`

	// EmbeddedWorkers runs the outbox relay and the deadline watcher inside the API server.
	EmbeddedWorkers bool `env:"EMBEDDED_WORKERS" envDefault:"true"`

	// DevMode enables developer impersonation through the X-Impersonate-User header.
	DevMode bool `env:"DEV_MODE" envDefault:"false"`

	CastFile        string `env:"CAST_FILE" envDefault:"config/cast.yaml"`
	DraftServiceURL string `env:"DRAFT_SERVICE_URL" envDefault:"http://localhost:8080"`
	WatcherWorkers  int    `env:"WATCHER_WORKERS" envDefault:"4"`

	DB dbconfig.Config
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WatcherWorkers <= 0 {
		return Config{}, fmt.Errorf("WATCHER_WORKERS must be positive, got %d", cfg.WatcherWorkers)
	}
	switch cfg.DocstoreDriver {
	case "postgres", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unsupported DOCSTORE_DRIVER %q", cfg.DocstoreDriver)
	}
	return cfg, nil
}

// SetupLogging configures the global zerolog logger for console output.
func SetupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
