package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// HandleEnvelope routes a bus envelope to HandleDomainEvent.
func (o *Orchestrator) HandleEnvelope(ctx context.Context, env events.Envelope) error {
	leagueID, err := uuid.Parse(env.LeagueID)
	if err != nil {
		return fmt.Errorf("parse league ID: %w", err)
	}
	return o.HandleDomainEvent(ctx, env.EventType, leagueID, env.Payload)
}

// HandleDomainEvent arms, replaces or cancels the league's timer for a draft event.
func (o *Orchestrator) HandleDomainEvent(ctx context.Context, eventType string, leagueID uuid.UUID, payload []byte) error {
	log.Debug().
		Str("event_type", eventType).
		Str("league_id", leagueID.String()).
		Msg("handling domain event")

	switch eventType {
	case events.TypeDraftStarted:
		var started events.DraftStartedPayload
		if err := json.Unmarshal(payload, &started); err != nil {
			return fmt.Errorf("failed to unmarshal DraftStarted payload: %w", err)
		}
		// a restart after reset begins again at index 0
		o.Cancel(leagueID)
		if started.Deadline != nil {
			o.Schedule(leagueID, 0, *started.Deadline)
		}
		return nil

	case events.TypePickMade:
		var made events.PickMadePayload
		if err := json.Unmarshal(payload, &made); err != nil {
			return fmt.Errorf("failed to unmarshal PickMade payload: %w", err)
		}
		if made.Deadline != nil {
			o.Schedule(leagueID, made.NextPickIndex, *made.Deadline)
		}
		return nil

	case events.TypeDraftCompleted, events.TypeDraftReset:
		o.Cancel(leagueID)
		return nil

	default:
		log.Warn().
			Str("event_type", eventType).
			Str("league_id", leagueID.String()).
			Msg("unknown event type - ignoring")
		return nil
	}
}

// handleTimeout auto-picks for an expired turn. Rejections that mean another
// path already resolved the turn are expected and only logged.
func (o *Orchestrator) handleTimeout(ctx context.Context, turn dueTurn) error {
	log.Info().
		Str("league_id", turn.LeagueID.String()).
		Int("pick_index", turn.PickIndex).
		Msg("auto-pick timeout firing")

	var res *pick.PickResult
	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		res, err = o.picker.AutoPick(ctx, turn.LeagueID, turn.PickIndex)
		if err != nil && !isRejection(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		log.Info().
			Str("league_id", turn.LeagueID.String()).
			Int("pick_index", turn.PickIndex).
			Str("candidate", res.Pick.Candidate).
			Bool("completed", res.Completed).
			Msg("auto-picked for expired turn")
		return nil
	case errors.Is(err, pick.ErrTurnNotExpired):
		// the pick service clock is behind ours; try again after the slack
		log.Warn().
			Str("league_id", turn.LeagueID.String()).
			Int("pick_index", turn.PickIndex).
			Msg("turn not yet expired, rearming")
		o.arm(turn, o.slack)
		return nil
	case errors.Is(err, pick.ErrPickAlreadyResolved),
		errors.Is(err, pick.ErrDraftNotActive),
		errors.Is(err, pick.ErrNotYourTurn),
		errors.Is(err, pick.ErrUntimedDraft),
		errors.Is(err, pick.ErrDraftNotFound):
		log.Debug().
			Err(err).
			Str("league_id", turn.LeagueID.String()).
			Int("pick_index", turn.PickIndex).
			Msg("turn already resolved")
		return nil
	default:
		return fmt.Errorf("auto-pick for pick %d failed: %w", turn.PickIndex, err)
	}
}

// isRejection reports whether err is a decision by the pick service rather than
// a transient failure worth retrying.
func isRejection(err error) bool {
	for _, target := range []error{
		pick.ErrTurnNotExpired,
		pick.ErrPickAlreadyResolved,
		pick.ErrDraftNotActive,
		pick.ErrNotYourTurn,
		pick.ErrUntimedDraft,
		pick.ErrDraftNotFound,
		pick.ErrNoCandidates,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
