package pick

import (
	"time"

	"github.com/mcdev12/castaway/go/internal/models"
)

// CandidateSet is what Apply needs from the catalog.
type CandidateSet interface {
	Known(name string) bool
}

// Apply validates a pick by actor and, when it passes, records it on d.
// d is left untouched on error. A pick that fills the last slot completes the draft.
func Apply(d *models.Draft, actor, candidate string, candidates CandidateSet, now time.Time, auto bool) (models.DraftPick, error) {
	if d.IsComplete() || d.Order[d.CurrentPickIndex] != actor {
		return models.DraftPick{}, ErrNotYourTurn
	}
	if d.Status != models.DraftStatusActive {
		return models.DraftPick{}, ErrDraftNotActive
	}
	for _, p := range d.Picks {
		if p.Candidate == candidate {
			return models.DraftPick{}, ErrCandidateAlreadyTaken
		}
	}
	if !candidates.Known(candidate) {
		return models.DraftPick{}, ErrUnknownCandidate
	}

	pick := models.DraftPick{
		ParticipantID: actor,
		Candidate:     candidate,
		PickNumber:    d.CurrentPickIndex,
		PickedAt:      now,
		AutoPicked:    auto,
	}
	d.Picks = append(d.Picks, pick)
	d.CurrentPickIndex++
	d.LastPickAt = now

	if d.IsComplete() {
		d.Status = models.DraftStatusCompleted
		completed := now
		d.CompletedAt = &completed
	}
	return pick, nil
}
