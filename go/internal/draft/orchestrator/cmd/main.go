package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/castaway/go/internal/config"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/orchestrator"
	"github.com/mcdev12/castaway/go/internal/draft/outbox/worker"
)

// The standalone watcher consumes draft events from JetStream and expires turns
// through the pick service. Only one watcher may run per deployment.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	config.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := docstore.Open(ctx, docstore.OpenConfig{
		Driver:     cfg.DocstoreDriver,
		SQLitePath: cfg.SQLitePath,
		DB:         cfg.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("open document store")
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	picker := orchestrator.NewPickClient(httpClient, cfg.DraftServiceURL)
	orch := orchestrator.NewOrchestrator(picker, clockwork.NewRealClock(), cfg.WatcherWorkers)

	jsCfg := worker.DefaultJetStreamConfig()
	if cfg.NatsURL != "" {
		jsCfg.URL = cfg.NatsURL
	}
	nc, err := worker.Connect(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to NATS")
	}
	defer nc.Close()

	consumer, err := orchestrator.NewConsumer(ctx, nc, jsCfg, orch.HandleEnvelope)
	if err != nil {
		log.Fatal().Err(err).Msg("create event consumer")
	}

	active, err := store.ListActiveDrafts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list active drafts")
	}
	orch.Recover(ctx, active)

	log.Info().
		Str("draft_service_url", cfg.DraftServiceURL).
		Str("nats_url", jsCfg.URL).
		Int("workers", cfg.WatcherWorkers).
		Msg("starting deadline watcher")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !nc.IsConnected() {
			http.Error(w, "NATS disconnected", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "OK timers=%d\n", orch.ActiveTimers())
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return consumer.Start(ctx) })
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("deadline watcher exited with error")
	}
	log.Info().Msg("deadline watcher shutdown complete")
}
