package pick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/catalog"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	conflictRetries = 5
	conflictBackoff = 5 * time.Millisecond
)

// App handles pick business logic
type App struct {
	repo     DraftRepository
	clock    clockwork.Clock
	strategy Strategy
}

// NewApp creates a new pick App
func NewApp(repo DraftRepository, clock clockwork.Clock, strategy Strategy) *App {
	return &App{
		repo:     repo,
		clock:    clock,
		strategy: strategy,
	}
}

// chooser picks the actor and candidate for one attempt against the loaded state.
type chooser func(d *models.Draft, cat *catalog.Catalog) (actor, candidate string, err error)

// MakePick records a participant's pick. It is the only path that mutates an
// active draft, and auto-picks go through it too.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*PickResult, error) {
	res, err := a.resolve(ctx, req.LeagueID, false, func(d *models.Draft, _ *catalog.Catalog) (string, string, error) {
		return req.ParticipantID, req.Candidate, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("league_id", req.LeagueID.String()).
		Str("participant_id", req.ParticipantID).
		Str("candidate", req.Candidate).
		Int("pick_index", res.Pick.PickNumber).
		Msg("pick made")
	return res, nil
}

// AutoPick fills pickIndex with a random available candidate when its timer has
// run out. Requests for an index that is already filled return ErrPickAlreadyResolved,
// so duplicate timer firings resolve at most one pick.
func (a *App) AutoPick(ctx context.Context, leagueID uuid.UUID, pickIndex int) (*PickResult, error) {
	res, err := a.resolve(ctx, leagueID, true, func(d *models.Draft, cat *catalog.Catalog) (string, string, error) {
		if d.CurrentPickIndex > pickIndex {
			return "", "", ErrPickAlreadyResolved
		}
		if d.Status != models.DraftStatusActive {
			return "", "", ErrDraftNotActive
		}
		if d.CurrentPickIndex < pickIndex {
			return "", "", fmt.Errorf("pick %d not reached, draft is at %d: %w", pickIndex, d.CurrentPickIndex, ErrTurnNotExpired)
		}
		if !d.IsTimed() {
			return "", "", ErrUntimedDraft
		}
		if !Expired(d, a.clock.Now()) {
			return "", "", ErrTurnNotExpired
		}

		available := cat.Available(d.Picks)
		if len(available) == 0 {
			return "", "", ErrNoCandidates
		}
		return d.Order[d.CurrentPickIndex], a.strategy.Choose(available), nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Str("participant_id", res.Pick.ParticipantID).
		Str("candidate", res.Pick.Candidate).
		Int("pick_index", pickIndex).
		Msg("auto-pick made")
	return res, nil
}

// resolve runs one pick against the latest state, reloading when a concurrent
// write wins the version race.
func (a *App) resolve(ctx context.Context, leagueID uuid.UUID, auto bool, choose chooser) (*PickResult, error) {
	var result *PickResult

	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(conflictBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := a.attempt(ctx, leagueID, auto, choose)
		if errors.Is(err, docstore.ErrVersionConflict) {
			log.Debug().Str("league_id", leagueID.String()).Msg("draft changed underneath pick, retrying")
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *App) attempt(ctx context.Context, leagueID uuid.UUID, auto bool, choose chooser) (*PickResult, error) {
	d, err := a.repo.LoadDraft(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if d == nil {
		return nil, ErrDraftNotFound
	}
	league, err := a.repo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}

	cat := catalog.New(league, Participants(d.Order))
	actor, candidate, err := choose(d, cat)
	if err != nil {
		return nil, err
	}
	// An active record without the league flag is a start that failed half way.
	if d.Status == models.DraftStatusActive && league.DraftStatus != models.LeagueDraftActive {
		return nil, ErrDraftNotActive
	}

	now := a.clock.Now().UTC()
	next := d.Clone()
	p, err := Apply(next, actor, candidate, cat, now, auto)
	if err != nil {
		return nil, err
	}

	made, err := events.New(leagueID, events.TypePickMade, pickMadePayload(next, p), now)
	if err != nil {
		return nil, err
	}

	if next.Status != models.DraftStatusCompleted {
		if err := a.repo.SaveDraft(ctx, next, made); err != nil {
			return nil, err
		}
		return &PickResult{Pick: p, Draft: next}, nil
	}

	// Completing pick: roster and status land in one write, so finalization runs once.
	rosters := FinalizeRoster(league, next)
	league.DraftStatus = models.LeagueDraftCompleted
	league.UpdatedAt = now

	completed, err := events.New(leagueID, events.TypeDraftCompleted, events.DraftCompletedPayload{
		LeagueID:    leagueID.String(),
		CompletedAt: now,
		Duration:    now.Sub(next.StartedAt).Round(time.Second).String(),
		TotalPicks:  len(next.Picks),
		Rosters:     rosters,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := a.repo.SaveDraftAndLeague(ctx, next, league, made, completed); err != nil {
		return nil, err
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Int("total_picks", len(next.Picks)).
		Msg("draft completed, rosters finalized")
	return &PickResult{Pick: p, Draft: next, Completed: true}, nil
}

// GetBoard returns the board projection of the league's draft.
func (a *App) GetBoard(ctx context.Context, leagueID uuid.UUID) (*Board, error) {
	d, err := a.repo.LoadDraft(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if d == nil {
		return nil, ErrDraftNotFound
	}
	league, err := a.repo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	return NewBoard(league, d, a.clock.Now()), nil
}

// ListAvailableCandidates returns the candidates not yet drafted. Before any draft
// has started every league contestant is available.
func (a *App) ListAvailableCandidates(ctx context.Context, leagueID uuid.UUID) ([]string, error) {
	league, err := a.repo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	d, err := a.repo.LoadDraft(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if d == nil || d.Status == models.DraftStatusReset {
		return catalog.New(league, league.MemberIDs()).Names(), nil
	}
	return catalog.New(league, Participants(d.Order)).Available(d.Picks), nil
}

// NewBoard projects a draft for display.
func NewBoard(league *models.League, d *models.Draft, now time.Time) *Board {
	b := &Board{
		LeagueID:            d.LeagueID,
		Status:              d.Status,
		Order:               append([]string(nil), d.Order...),
		Turn:                ResolveTurn(d.Order, d.CurrentPickIndex),
		TotalPicks:          len(d.Order),
		Picks:               append([]models.DraftPick(nil), d.Picks...),
		RosterByParticipant: make(map[string][]string),
		DisplayNames:        make(map[string]string),
		TimerSeconds:        d.TimerSeconds,
		Deadline:            d.Deadline(),
		Version:             d.Version,
	}

	participants := Participants(d.Order)
	for _, p := range participants {
		b.RosterByParticipant[p] = []string{}
		b.DisplayNames[p] = league.DisplayName(p)
	}
	for _, p := range d.Picks {
		b.RosterByParticipant[p.ParticipantID] = append(b.RosterByParticipant[p.ParticipantID], p.Candidate)
	}
	b.Available = catalog.New(league, participants).Available(d.Picks)

	if remaining, ok := TimeRemaining(d, now); ok {
		b.TimeRemaining = &remaining
	}
	return b
}

func pickMadePayload(d *models.Draft, p models.DraftPick) events.PickMadePayload {
	turn := ResolveTurn(d.Order, p.PickNumber)
	next := ResolveTurn(d.Order, d.CurrentPickIndex)
	return events.PickMadePayload{
		LeagueID:        d.LeagueID.String(),
		ParticipantID:   p.ParticipantID,
		Candidate:       p.Candidate,
		PickNumber:      p.PickNumber,
		Round:           turn.Round,
		PickInRound:     turn.PickInRound,
		AutoPicked:      p.AutoPicked,
		MadeAt:          p.PickedAt,
		NextPickIndex:   d.CurrentPickIndex,
		NextParticipant: next.ParticipantID,
		TimerSeconds:    d.TimerSeconds,
		Deadline:        d.Deadline(),
	}
}
