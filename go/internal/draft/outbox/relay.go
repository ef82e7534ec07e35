package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

type RelayConfig struct {
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       uint64
	RetryDelay       time.Duration
	BatchSize        int // Max events to fetch per batch
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		BatchSize:        100,
	}
}

// Publisher delivers an outbox event to the bus.
type Publisher interface {
	Publish(ctx context.Context, event models.OutboxEvent) error
}

// Relay moves committed outbox events to a Publisher. It wakes on notifications
// carrying event IDs and polls on a fallback interval for anything it missed.
type Relay struct {
	repo      docstore.OutboxRepository
	publisher Publisher
	wake      <-chan uuid.UUID
	clock     clockwork.Clock
	cfg       RelayConfig

	// serializes deliveries so a notification and a poll never publish the same row twice
	deliverMu sync.Mutex

	mu        sync.Mutex
	running   bool
	processed uint64
	lastEvent time.Time
}

func NewRelay(repo docstore.OutboxRepository, publisher Publisher, wake <-chan uuid.UUID, clock clockwork.Clock, cfg RelayConfig) *Relay {
	return &Relay{
		repo:      repo,
		publisher: publisher,
		wake:      wake,
		clock:     clock,
		cfg:       cfg,
	}
}

// Start blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	log.Info().
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Int("batch_size", r.cfg.BatchSize).
		Msg("outbox relay started")

	r.setRunning(true)
	defer r.setRunning(false)

	// catch up on anything committed while no relay was running
	if err := r.ProcessUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	fallback := r.clock.NewTicker(r.cfg.FallbackInterval)
	defer fallback.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay shutting down")
			return nil
		case id, ok := <-r.wake:
			if !ok {
				r.wake = nil
				continue
			}
			if err := r.handleNotification(ctx, id); err != nil {
				log.Error().Err(err).Str("event_id", id.String()).Msg("failed to handle notification")
			}
		case <-fallback.Chan():
			if err := r.ProcessUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		}
	}
}

// handleNotification fetches the notified event and publishes it unless a poll
// already did.
func (r *Relay) handleNotification(ctx context.Context, id uuid.UUID) error {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	event, err := r.repo.FetchOutboxByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	if event.SentAt != nil {
		return nil
	}
	return r.deliver(ctx, *event)
}

// ProcessUnsent publishes every unsent event in commit order, one batch at a time.
func (r *Relay) ProcessUnsent(ctx context.Context) error {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	for {
		unsent, err := r.repo.FetchUnsentOutbox(ctx, r.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
		}
		if len(unsent) == 0 {
			return nil
		}
		for _, event := range unsent {
			// stop at the first failure so later events are not published ahead of it
			if err := r.deliver(ctx, event); err != nil {
				return err
			}
		}
		if len(unsent) < r.cfg.BatchSize {
			return nil
		}
	}
}

func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) error {
	if err := r.publishWithRetry(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	if err := r.repo.MarkOutboxSent(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark outbox event %s as sent: %w", event.ID, err)
	}

	r.mu.Lock()
	r.processed++
	r.lastEvent = r.clock.Now()
	r.mu.Unlock()

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("league_id", event.LeagueID.String()).
		Msg("published and marked event as sent")
	return nil
}

// publishWithRetry publishes with exponential backoff starting at RetryDelay.
func (r *Relay) publishWithRetry(ctx context.Context, event models.OutboxEvent) error {
	attempt := 0
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewExponential(r.cfg.RetryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := r.publisher.Publish(ctx, event); err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			return retry.RetryableError(err)
		}
		if attempt > 1 {
			log.Info().
				Int("attempt", attempt).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	})
}

// Stats returns the number of events relayed and when the last one went out.
func (r *Relay) Stats() (processed uint64, last time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed, r.lastEvent
}

func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Relay) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}
