package pick

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nameSet map[string]bool

func (s nameSet) Known(name string) bool { return s[name] }

func activeDraft(order ...string) *models.Draft {
	start := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	return &models.Draft{
		LeagueID:            uuid.New(),
		Status:              models.DraftStatusActive,
		Order:               order,
		PicksPerParticipant: 2,
		TimerSeconds:        60,
		StartedAt:           start,
		LastPickAt:          start,
	}
}

func TestApply(t *testing.T) {
	cands := nameSet{"w": true, "x": true, "y": true, "z": true}
	now := time.Date(2025, 3, 1, 20, 0, 30, 0, time.UTC)

	t.Run("records pick and advances", func(t *testing.T) {
		d := activeDraft("A", "B", "B", "A")
		p, err := Apply(d, "A", "w", cands, now, false)
		require.NoError(t, err)

		assert.Equal(t, models.DraftPick{ParticipantID: "A", Candidate: "w", PickNumber: 0, PickedAt: now}, p)
		assert.Equal(t, 1, d.CurrentPickIndex)
		assert.Equal(t, now, d.LastPickAt)
		assert.Equal(t, models.DraftStatusActive, d.Status)
		assert.Len(t, d.Picks, 1)
	})

	t.Run("last pick completes", func(t *testing.T) {
		d := activeDraft("A", "B")
		_, err := Apply(d, "A", "w", cands, now, false)
		require.NoError(t, err)
		_, err = Apply(d, "B", "x", cands, now, true)
		require.NoError(t, err)

		assert.Equal(t, models.DraftStatusCompleted, d.Status)
		require.NotNil(t, d.CompletedAt)
		assert.True(t, d.Picks[1].AutoPicked)
	})

	t.Run("rejections leave draft untouched", func(t *testing.T) {
		tests := []struct {
			name      string
			setup     func(d *models.Draft)
			actor     string
			candidate string
			wantErr   error
		}{
			{name: "wrong participant", actor: "B", candidate: "w", wantErr: ErrNotYourTurn},
			{name: "turn checked before status", setup: func(d *models.Draft) { d.Status = models.DraftStatusReset }, actor: "B", candidate: "w", wantErr: ErrNotYourTurn},
			{name: "inactive draft", setup: func(d *models.Draft) { d.Status = models.DraftStatusPending }, actor: "A", candidate: "w", wantErr: ErrDraftNotActive},
			{name: "completed draft", setup: func(d *models.Draft) { d.CurrentPickIndex = 4; d.Status = models.DraftStatusCompleted }, actor: "A", candidate: "w", wantErr: ErrNotYourTurn},
			{name: "taken checked before unknown", setup: func(d *models.Draft) {
				d.Picks = []models.DraftPick{{ParticipantID: "A", Candidate: "nobody"}}
				d.CurrentPickIndex = 1
			}, actor: "B", candidate: "nobody", wantErr: ErrCandidateAlreadyTaken},
			{name: "taken", setup: func(d *models.Draft) {
				d.Picks = []models.DraftPick{{ParticipantID: "A", Candidate: "w"}}
				d.CurrentPickIndex = 1
			}, actor: "B", candidate: "w", wantErr: ErrCandidateAlreadyTaken},
			{name: "unknown", actor: "A", candidate: "nobody", wantErr: ErrUnknownCandidate},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d := activeDraft("A", "B", "B", "A")
				if tt.setup != nil {
					tt.setup(d)
				}
				before := d.Clone()

				_, err := Apply(d, tt.actor, tt.candidate, cands, now, false)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, d)
			})
		}
	})
}
