package draft

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientCandidates = errors.New("insufficient candidates")
	ErrNotCommissioner        = errors.New("only the commissioner can do that")
	ErrInvalidTimer           = errors.New("timer must be one of 0, 60, 90 or 120 seconds")
	ErrInvalidSettings        = errors.New("invalid draft settings")
	ErrDraftInProgress        = errors.New("draft already in progress")
	ErrDraftAlreadyCompleted  = errors.New("draft already completed, reset it first")
)

// InsufficientCandidatesError reports a draft that would run out of contestants.
type InsufficientCandidatesError struct {
	Participants        int
	PicksPerParticipant int
	Available           int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("not enough contestants: %d players × %d picks = %d picks, but only %d contestants available",
		e.Participants, e.PicksPerParticipant, e.Required(), e.Available)
}

func (e *InsufficientCandidatesError) Is(target error) bool {
	return target == ErrInsufficientCandidates
}

// Required is the number of picks the configuration needs.
func (e *InsufficientCandidatesError) Required() int {
	return e.Participants * e.PicksPerParticipant
}

// Shortfall is how many more contestants the draft would need.
func (e *InsufficientCandidatesError) Shortfall() int {
	return e.Required() - e.Available
}
