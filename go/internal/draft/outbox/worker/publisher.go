package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	HeaderEventType = "Event-Type"
	HeaderLeagueID  = "League-ID"
	HeaderEventID   = "Event-ID"
)

// JetStreamConfig names the draft event stream and its retention.
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string

	MaxReconnects int
	ReconnectWait time.Duration

	MaxAge time.Duration
	// DedupWindow must outlast the relay's retries so a republished event is dropped.
	DedupWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DRAFT_EVENTS",
		SubjectPrefix: "draft.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        7 * 24 * time.Hour,
		DedupWindow:   2 * time.Hour,
	}
}

// Subject returns the subject an event type is published on.
func (c JetStreamConfig) Subject(eventType string) string {
	return c.SubjectPrefix + "." + eventType
}

func (c JetStreamConfig) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        c.StreamName,
		Description: "draft lifecycle and pick events",
		Subjects:    []string{c.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      c.MaxAge,
		MaxMsgs:     -1,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  c.DedupWindow,
	}
}

// Connect dials NATS, logging connection drops. Consumers share it with the publisher.
func Connect(cfg JetStreamConfig) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("lost NATS connection")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connection restored")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// EnsureStream creates the draft event stream, or updates it when retention changed.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg JetStreamConfig) error {
	want := cfg.streamConfig()

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		if _, err := js.CreateStream(ctx, want); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.StreamName, err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("draft event stream created")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("read stream %s: %w", cfg.StreamName, err)
	}
	if !streamNeedsUpdate(info.Config, want) {
		return nil
	}
	if _, err := js.UpdateStream(ctx, want); err != nil {
		return fmt.Errorf("update stream %s: %w", cfg.StreamName, err)
	}
	log.Info().Str("stream", cfg.StreamName).Msg("draft event stream updated")
	return nil
}

func streamNeedsUpdate(have, want jetstream.StreamConfig) bool {
	return have.MaxAge != want.MaxAge || have.Duplicates != want.Duplicates
}

// JetStreamPublisher publishes outbox events as envelopes on the draft event stream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
	clock  clockwork.Clock
}

func NewJetStreamPublisher(cfg JetStreamConfig, clock clockwork.Clock) (*JetStreamPublisher, error) {
	nc, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if err := EnsureStream(context.Background(), js, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	return &JetStreamPublisher{nc: nc, js: js, config: cfg, clock: clock}, nil
}

// Conn exposes the NATS connection for health checks.
func (p *JetStreamPublisher) Conn() *nats.Conn {
	return p.nc
}

// Publish sends the event with its ID as the JetStream message ID, so a
// redelivery from the relay inside the dedup window is dropped by the server.
func (p *JetStreamPublisher) Publish(ctx context.Context, event models.OutboxEvent) error {
	msg, err := p.config.message(event, p.clock.Now().UTC())
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish %s for league %s: %w", event.EventType, event.LeagueID, err)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", event.ID.String()).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("draft event published")
	return nil
}

// message wraps an outbox row in an envelope addressed to its event type's subject.
func (c JetStreamConfig) message(event models.OutboxEvent, at time.Time) (*nats.Msg, error) {
	data, err := json.Marshal(events.NewEnvelope(event, at))
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	msg := nats.NewMsg(c.Subject(event.EventType))
	msg.Data = data
	msg.Header.Set(HeaderEventType, event.EventType)
	msg.Header.Set(HeaderLeagueID, event.LeagueID.String())
	msg.Header.Set(HeaderEventID, event.ID.String())
	return msg, nil
}

func (p *JetStreamPublisher) Close() error {
	p.nc.Close()
	return nil
}
