package pick

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// MakePickRequest represents a participant's pick.
type MakePickRequest struct {
	LeagueID      uuid.UUID `json:"league_id"`
	ParticipantID string    `json:"participant_id"`
	Candidate     string    `json:"candidate"`
}

// PickResult is the outcome of a resolved pick.
type PickResult struct {
	Pick      models.DraftPick `json:"pick"`
	Draft     *models.Draft    `json:"draft"`
	Completed bool             `json:"completed"`
}

// Board is the read model of a draft shown to participants.
type Board struct {
	LeagueID            uuid.UUID           `json:"league_id"`
	Status              models.DraftStatus  `json:"status"`
	Order               []string            `json:"order"`
	Turn                Turn                `json:"turn"`
	TotalPicks          int                 `json:"total_picks"`
	Picks               []models.DraftPick  `json:"picks"`
	RosterByParticipant map[string][]string `json:"roster_by_participant"`
	DisplayNames        map[string]string   `json:"display_names"`
	Available           []string            `json:"available"`
	TimerSeconds        int                 `json:"timer_seconds"`
	Deadline            *time.Time          `json:"deadline,omitempty"`

	// TimeRemaining is nil for async drafts and drafts that are not running.
	TimeRemaining *int  `json:"time_remaining,omitempty"`
	Version       int64 `json:"version"`
}
