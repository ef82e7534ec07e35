package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/castaway/go/internal/config"
	"github.com/mcdev12/castaway/go/internal/draft/outbox"
	"github.com/mcdev12/castaway/go/internal/draft/outbox/worker"
)

// The standalone relay drains the Postgres outbox onto JetStream. Deployments
// on sqlite run the relay inside the API server instead.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	config.SetupLogging(cfg.LogLevel)

	dsn := cfg.DB.DSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("host", cfg.DB.Host).
		Int("port", cfg.DB.Port).
		Str("database", cfg.DB.Database).
		Msg("connected to database")

	clock := clockwork.NewRealClock()

	jsCfg := worker.DefaultJetStreamConfig()
	if cfg.NatsURL != "" {
		jsCfg.URL = cfg.NatsURL
	}
	publisher, err := worker.NewJetStreamPublisher(jsCfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}()

	notifier, err := outbox.NewPGNotifier(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox notifier")
	}
	defer notifier.Close()

	repo := outbox.NewPostgresRepository(db)
	relay := outbox.NewRelay(repo, publisher, notifier.Notifications(), clock, outbox.DefaultRelayConfig())
	health := outbox.NewHealthChecker(relay, repo, publisher.Conn(), clock, 5*time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/health", health)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msg("starting outbox relay")
		return relay.Start(ctx)
	})
	g.Go(func() error {
		log.Info().Int("port", cfg.Port).Msg("health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("relay exited with error")
	}
	log.Info().Msg("graceful shutdown complete")
}
