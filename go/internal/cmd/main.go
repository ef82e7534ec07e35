package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/castaway/go/internal/config"
	"github.com/mcdev12/castaway/go/internal/docstore"
)

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
		Listen:     true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("open document store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close document store")
		}
	}()

	clock := clockwork.NewRealClock()
	services := setupServices(store, clock)
	server := setupServer(cfg, services)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return services.Gateway.Start(ctx) })

	if cfg.EmbeddedWorkers {
		workers, err := setupEmbeddedWorkers(ctx, cfg, store, services, clock)
		if err != nil {
			log.Fatal().Err(err).Msg("set up embedded workers")
		}
		defer workers.Close()
		workers.Run(ctx, g)
	}

	g.Go(func() error {
		log.Info().
			Str("addr", server.Addr).
			Str("docstore", cfg.DocstoreDriver).
			Bool("dev_mode", cfg.DevMode).
			Bool("embedded_workers", cfg.EmbeddedWorkers).
			Msg("castaway server listening")
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
		log.Error().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("castaway server shutdown complete")
}
