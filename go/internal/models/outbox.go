package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is a domain event persisted alongside the write that produced it.
type OutboxEvent struct {
	ID        uuid.UUID  `json:"id"`
	LeagueID  uuid.UUID  `json:"league_id"`
	EventType string     `json:"event_type"`
	Payload   []byte     `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
