package models

import (
	"time"

	"github.com/google/uuid"
)

// LeagueDraftStatus is the league-level flag pointing at the draft lifecycle.
type LeagueDraftStatus string

const (
	LeagueDraftPending   LeagueDraftStatus = "pending"
	LeagueDraftActive    LeagueDraftStatus = "active"
	LeagueDraftCompleted LeagueDraftStatus = "completed"
)

// Member is a user who belongs to a league.
type Member struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// League is the shared league document. The draft lives in its own record keyed by league ID.
type League struct {
	ID             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	Season         string                 `json:"season"`
	CommissionerID string                 `json:"commissioner_id"`
	Members        []Member               `json:"members"`
	Teams          map[string]FantasyTeam `json:"teams"`
	Contestants    []Contestant           `json:"contestants"`
	DraftStatus    LeagueDraftStatus      `json:"draft_status"`
	DraftSettings  *DraftSettings         `json:"draft_settings,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`

	// Version is the optimistic concurrency token for the league document.
	Version int64 `json:"version"`
}

// Member returns the member with the given ID.
func (l *League) Member(id string) (Member, bool) {
	for _, m := range l.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// DisplayName returns the member's display name, falling back to the ID.
func (l *League) DisplayName(id string) string {
	if m, ok := l.Member(id); ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return id
}

// MemberIDs returns member IDs in join order.
func (l *League) MemberIDs() []string {
	ids := make([]string, 0, len(l.Members))
	for _, m := range l.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// Clone returns a deep copy of the league document.
func (l *League) Clone() *League {
	if l == nil {
		return nil
	}
	c := *l
	c.Members = append([]Member(nil), l.Members...)
	c.Contestants = append([]Contestant(nil), l.Contestants...)
	if l.Teams != nil {
		c.Teams = make(map[string]FantasyTeam, len(l.Teams))
		for name, t := range l.Teams {
			t.Members = append([]string(nil), t.Members...)
			c.Teams[name] = t
		}
	}
	if l.DraftSettings != nil {
		s := *l.DraftSettings
		s.Participants = append([]string(nil), l.DraftSettings.Participants...)
		c.DraftSettings = &s
	}
	return &c
}
