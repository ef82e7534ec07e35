package models

import (
	"time"
)

// DraftPick is a single resolved pick. PickNumber is the cursor value at the time of the pick.
type DraftPick struct {
	ParticipantID string    `json:"participant_id"`
	Candidate     string    `json:"candidate"`
	PickNumber    int       `json:"pick_number"`
	PickedAt      time.Time `json:"picked_at"`
	AutoPicked    bool      `json:"auto_picked,omitempty"`
}
