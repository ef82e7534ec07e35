package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/draft/outbox/worker"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	consumerName          = "draft-orchestrator"
	consumerMaxDeliver    = 5
	consumerAckWait       = 30 * time.Second
	consumerMaxAckPending = 100
)

// EnvelopeHandler consumes one event envelope.
type EnvelopeHandler func(ctx context.Context, env events.Envelope) error

// Consumer feeds draft events from a durable JetStream consumer to a handler.
type Consumer struct {
	consumer jetstream.Consumer
	handle   EnvelopeHandler
}

// NewConsumer creates or reuses the durable consumer on the draft event stream.
// Deliveries resume from the last acknowledged event after a restart.
func NewConsumer(ctx context.Context, nc *nats.Conn, cfg worker.JetStreamConfig, handle EnvelopeHandler) (*Consumer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if err := worker.EnsureStream(ctx, js, cfg); err != nil {
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		Description:   "Deadline watcher event consumer",
		FilterSubject: fmt.Sprintf("%s.>", cfg.SubjectPrefix),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    consumerMaxDeliver,
		AckWait:       consumerAckWait,
		MaxAckPending: consumerMaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	return &Consumer{consumer: consumer, handle: handle}, nil
}

// Start consumes until ctx is cancelled. Messages are handled in delivery order.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("starting watcher event consumer")

	messageCh := make(chan jetstream.Msg, consumerMaxAckPending)
	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			if err := msg.Nak(); err != nil {
				log.Error().Err(err).Msg("failed to NAK message")
			}
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watcher event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := c.process(ctx, msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg jetstream.Msg) error {
	var env events.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("league_id", env.LeagueID).
		Str("event_type", env.EventType).
		Str("subject", msg.Subject()).
		Msg("processing watcher event")

	return c.handle(ctx, env)
}
