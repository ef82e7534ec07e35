package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/castaway/go/internal/config"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/orchestrator"
	"github.com/mcdev12/castaway/go/internal/draft/outbox"
)

// embeddedWorkers runs the outbox relay and the deadline watcher in-process.
// Events are fanned out through a LocalPublisher instead of JetStream.
type embeddedWorkers struct {
	relay    *outbox.Relay
	orch     *orchestrator.Orchestrator
	notifier *outbox.PGNotifier
}

func setupEmbeddedWorkers(ctx context.Context, cfg config.Config, store docstore.Store, services *Services, clock clockwork.Clock) (*embeddedWorkers, error) {
	repo, ok := store.(docstore.OutboxRepository)
	if !ok {
		return nil, fmt.Errorf("document store %q does not expose its outbox", cfg.DocstoreDriver)
	}

	w := &embeddedWorkers{}

	var wake <-chan uuid.UUID
	if n, ok := store.(docstore.Notifier); ok {
		wake = n.Notifications()
	} else if cfg.DocstoreDriver == "postgres" {
		notifier, err := outbox.NewPGNotifier(cfg.DB.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to listen for outbox notifications: %w", err)
		}
		w.notifier = notifier
		wake = notifier.Notifications()
	}

	w.orch = orchestrator.NewOrchestrator(services.PickApp, clock, cfg.WatcherWorkers)

	publisher := outbox.NewLocalPublisher()
	publisher.Subscribe(w.orch.HandleEnvelope)

	w.relay = outbox.NewRelay(repo, publisher, wake, clock, outbox.DefaultRelayConfig())

	active, err := store.ListActiveDrafts(ctx)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to list active drafts: %w", err)
	}
	w.orch.Recover(ctx, active)

	log.Info().
		Int("active_drafts", len(active)).
		Int("watcher_workers", cfg.WatcherWorkers).
		Msg("embedded relay and deadline watcher ready")
	return w, nil
}

func (w *embeddedWorkers) Run(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return w.orch.Run(ctx) })
	g.Go(func() error { return w.relay.Start(ctx) })
}

func (w *embeddedWorkers) Close() {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Close(); err != nil {
		log.Error().Err(err).Msg("close outbox notifier")
	}
}
