package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// OutboxChannel is the NOTIFY channel the draft_outbox insert trigger signals on.
const OutboxChannel = "draft_outbox_events"

// PGNotifier turns draft_outbox NOTIFY payloads into event IDs for a Relay.
type PGNotifier struct {
	listener *pq.Listener
	ids      chan uuid.UUID
	done     chan struct{}
}

// NewPGNotifier connects a LISTEN session and starts forwarding notifications.
func NewPGNotifier(dsn string) (*PGNotifier, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Error().Err(err).Msg("outbox listener error")
		}
		switch ev {
		case pq.ListenerEventConnected:
			log.Info().Msg("outbox listener connected")
		case pq.ListenerEventDisconnected:
			log.Warn().Msg("outbox listener disconnected")
		case pq.ListenerEventReconnected:
			log.Info().Msg("outbox listener reconnected")
		}
	})
	if err := listener.Listen(OutboxChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", OutboxChannel, err)
	}

	n := &PGNotifier{
		listener: listener,
		ids:      make(chan uuid.UUID, 256),
		done:     make(chan struct{}),
	}
	go n.forward()
	return n, nil
}

func (n *PGNotifier) Notifications() <-chan uuid.UUID {
	return n.ids
}

func (n *PGNotifier) forward() {
	defer close(n.ids)
	for {
		select {
		case <-n.done:
			return
		case note, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; the relay's fallback poll covers the gap
			if note == nil {
				continue
			}
			id, err := uuid.Parse(note.Extra)
			if err != nil {
				log.Error().Err(err).Str("payload", note.Extra).Msg("invalid outbox notification payload")
				continue
			}
			select {
			case n.ids <- id:
			case <-n.done:
				return
			}
		}
	}
}

// Ping checks the LISTEN connection.
func (n *PGNotifier) Ping(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- n.listener.Ping() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *PGNotifier) Close() error {
	close(n.done)
	return n.listener.Close()
}
