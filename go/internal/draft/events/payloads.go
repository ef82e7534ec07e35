package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// Event types emitted by the draft apps and relayed through the outbox.
const (
	TypeDraftStarted   = "DraftStarted"
	TypePickMade       = "PickMade"
	TypeDraftCompleted = "DraftCompleted"
	TypeDraftReset     = "DraftReset"
)

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	LeagueID            string     `json:"league_id"`
	StartedAt           time.Time  `json:"started_at"`
	Participants        []string   `json:"participants"`
	PicksPerParticipant int        `json:"picks_per_participant"`
	TotalPicks          int        `json:"total_picks"`
	TimerSeconds        int        `json:"timer_seconds"`
	FirstParticipant    string     `json:"first_participant"`
	Deadline            *time.Time `json:"deadline,omitempty"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	LeagueID        string     `json:"league_id"`
	ParticipantID   string     `json:"participant_id"`
	Candidate       string     `json:"candidate"`
	PickNumber      int        `json:"pick_number"`
	Round           int        `json:"round"`
	PickInRound     int        `json:"pick_in_round"`
	AutoPicked      bool       `json:"auto_picked"`
	MadeAt          time.Time  `json:"made_at"`
	NextPickIndex   int        `json:"next_pick_index"`
	NextParticipant string     `json:"next_participant,omitempty"`
	TimerSeconds    int        `json:"timer_seconds"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	LeagueID    string              `json:"league_id"`
	CompletedAt time.Time           `json:"completed_at"`
	Duration    string              `json:"duration"`
	TotalPicks  int                 `json:"total_picks"`
	Rosters     map[string][]string `json:"rosters"`
}

// DraftResetPayload is the payload for a DraftReset event
type DraftResetPayload struct {
	LeagueID       string             `json:"league_id"`
	ResetAt        time.Time          `json:"reset_at"`
	PreviousStatus models.DraftStatus `json:"previous_status"`
	PicksDiscarded int                `json:"picks_discarded"`
}

// New builds an outbox event with a marshalled payload.
func New(leagueID uuid.UUID, eventType string, payload any, at time.Time) (models.OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return models.OutboxEvent{
		ID:        uuid.New(),
		LeagueID:  leagueID,
		EventType: eventType,
		Payload:   data,
		CreatedAt: at,
	}, nil
}

// Envelope is the wire shape published on the event bus.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	LeagueID  string          `json:"leagueId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an outbox event for publishing.
func NewEnvelope(event models.OutboxEvent, at time.Time) Envelope {
	return Envelope{
		EventID:   event.ID.String(),
		EventType: event.EventType,
		LeagueID:  event.LeagueID.String(),
		Timestamp: at,
		Payload:   json.RawMessage(event.Payload),
	}
}
