package draft

import (
	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

const DefaultPicksPerParticipant = 3

// TimerPresets are the countdowns a commissioner may choose. 0 is an async draft.
var TimerPresets = []int{0, 60, 90, 120}

// StartDraftRequest represents a request to start a league's draft
type StartDraftRequest struct {
	LeagueID uuid.UUID `json:"league_id"`
	CallerID string    `json:"caller_id"`

	// Settings overrides the league's saved settings when set.
	Settings       *models.DraftSettings `json:"settings,omitempty"`
	RandomizeOrder bool                  `json:"randomize_order"`
}

// SaveDraftSettingsRequest represents a request to store settings for a later start
type SaveDraftSettingsRequest struct {
	LeagueID uuid.UUID            `json:"league_id"`
	CallerID string               `json:"caller_id"`
	Settings models.DraftSettings `json:"settings"`
}

// DraftView is a draft together with the settings the lobby shows.
type DraftView struct {
	Draft       *models.Draft            `json:"draft,omitempty"`
	Settings    models.DraftSettings     `json:"settings"`
	LeagueState models.LeagueDraftStatus `json:"league_state"`
}
