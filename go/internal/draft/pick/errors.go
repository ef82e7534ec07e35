package pick

import "errors"

// Pick rejections in the order they are checked.
var (
	ErrNotYourTurn           = errors.New("not your turn")
	ErrDraftNotActive        = errors.New("draft is not active")
	ErrCandidateAlreadyTaken = errors.New("candidate already taken")
	ErrUnknownCandidate      = errors.New("unknown candidate")
)

var (
	ErrDraftNotFound = errors.New("draft not found")

	// ErrPickAlreadyResolved is returned to an expiry request whose pick index has
	// already been filled, by a manual pick or an earlier expiry.
	ErrPickAlreadyResolved = errors.New("pick already resolved")
	ErrTurnNotExpired      = errors.New("turn has not expired")
	ErrUntimedDraft        = errors.New("draft has no pick timer")
	ErrNoCandidates        = errors.New("no candidates available")
)
