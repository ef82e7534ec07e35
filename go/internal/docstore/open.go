package docstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/mcdev12/castaway/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

// OpenConfig selects and configures a Store backend.
type OpenConfig struct {
	Driver     string // postgres, sqlite or memory
	SQLitePath string
	DB         dbconfig.Config

	// Listen enables cross-process draft subscriptions on Postgres.
	Listen bool
}

// Open returns the configured store with migrations applied.
func Open(ctx context.Context, cfg OpenConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("using in-memory document store, state is lost on restart")
		return NewMemory(), nil

	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)

	case "postgres":
		dsn := cfg.DB.DSN()
		if err := migratePostgres(ctx, dsn); err != nil {
			return nil, err
		}

		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}

		store := NewPostgres(pool)
		if cfg.Listen {
			if err := store.StartListening(ctx, dsn); err != nil {
				store.Close()
				return nil, err
			}
		}
		log.Info().
			Str("host", cfg.DB.Host).
			Int("port", cfg.DB.Port).
			Str("database", cfg.DB.Database).
			Msg("postgres document store ready")
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported document store driver %q", cfg.Driver)
	}
}

func migratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres for migrations: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return Migrate(ctx, db, "postgres")
}
