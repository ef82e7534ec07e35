package outbox

import (
	"context"
	"sync"

	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Handler consumes a published event envelope.
type Handler func(ctx context.Context, env events.Envelope) error

// LocalPublisher delivers events to in-process handlers. It stands in for
// JetStream when the relay and its consumers share a process.
type LocalPublisher struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{}
}

// Subscribe registers a handler for every event published from now on.
func (p *LocalPublisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Publish calls each handler in turn. A handler error is logged, not returned:
// the event is already committed and handlers own their retries.
func (p *LocalPublisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	env := events.NewEnvelope(event, event.CreatedAt)

	p.mu.RLock()
	handlers := append([]Handler(nil), p.handlers...)
	p.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, env); err != nil {
			log.Error().
				Err(err).
				Str("event_id", env.EventID).
				Str("event_type", env.EventType).
				Msg("local event handler failed")
		}
	}
	return nil
}
