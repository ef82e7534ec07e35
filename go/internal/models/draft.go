package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusActive    DraftStatus = "active"
	DraftStatusCompleted DraftStatus = "completed"
	DraftStatusReset     DraftStatus = "reset"
)

// DraftSettings is the configuration the commissioner chooses before a draft starts.
// It is also persisted on the league so the lobby can be pre-filled next time.
type DraftSettings struct {
	Participants        []string `json:"participants"`
	PicksPerParticipant int      `json:"picks_per_participant"`
	TimerSeconds        int      `json:"timer_seconds"`
}

// TotalPicks returns participants × picks per participant.
func (s DraftSettings) TotalPicks() int {
	return len(s.Participants) * s.PicksPerParticipant
}

// Draft is the persisted state of a league's draft. There is at most one per league.
type Draft struct {
	LeagueID            uuid.UUID   `json:"league_id"`
	Status              DraftStatus `json:"status"`
	Order               []string    `json:"order"`
	CurrentPickIndex    int         `json:"current_pick_index"`
	Picks               []DraftPick `json:"picks"`
	TimerSeconds        int         `json:"timer_seconds"`
	PicksPerParticipant int         `json:"picks_per_participant"`
	StartedAt           time.Time   `json:"started_at"`
	LastPickAt          time.Time   `json:"last_pick_at"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty"`
	ResetAt             *time.Time  `json:"reset_at,omitempty"`

	// Version is the optimistic concurrency token. Writes must carry the version they read.
	Version int64 `json:"version"`
}

// IsTimed reports whether picks are subject to a countdown.
func (d *Draft) IsTimed() bool {
	return d.TimerSeconds > 0
}

// IsComplete reports whether every slot in the order has been resolved.
func (d *Draft) IsComplete() bool {
	return d.CurrentPickIndex >= len(d.Order)
}

// Deadline returns when the current pick times out, or nil for async or inactive drafts.
func (d *Draft) Deadline() *time.Time {
	if d.Status != DraftStatusActive || !d.IsTimed() || d.IsComplete() {
		return nil
	}
	t := d.LastPickAt.Add(time.Duration(d.TimerSeconds) * time.Second)
	return &t
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	c.Order = append([]string(nil), d.Order...)
	c.Picks = append([]DraftPick(nil), d.Picks...)
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		c.CompletedAt = &t
	}
	if d.ResetAt != nil {
		t := *d.ResetAt
		c.ResetAt = &t
	}
	return &c
}
