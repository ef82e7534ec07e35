package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/catalog"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// App handles draft lifecycle business logic
type App struct {
	repo  DraftRepository
	clock clockwork.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewApp creates a new draft App
func NewApp(repo DraftRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
		rng:   rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// StartDraft validates the configuration and opens the draft. The draft record is
// written before the league flag; if the flag write fails the flag is restored and
// the start may be retried.
func (a *App) StartDraft(ctx context.Context, req StartDraftRequest) (*models.Draft, error) {
	league, err := a.repo.LoadLeague(ctx, req.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	if league.CommissionerID != req.CallerID {
		return nil, ErrNotCommissioner
	}

	settings := resolveSettings(league)
	if req.Settings != nil {
		settings = *req.Settings
	}
	settings.Participants = append([]string(nil), settings.Participants...)
	if err := validateSettings(league, settings); err != nil {
		return nil, err
	}

	existing, err := a.repo.LoadDraft(ctx, req.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if existing != nil {
		switch {
		case existing.Status == models.DraftStatusCompleted:
			return nil, ErrDraftAlreadyCompleted
		// An active draft without the league flag is a start whose flag write
		// failed; it is overwritten.
		case existing.Status == models.DraftStatusActive && league.DraftStatus == models.LeagueDraftActive:
			return nil, ErrDraftInProgress
		}
	}

	available := catalog.New(league, settings.Participants).Count()
	if settings.TotalPicks() > available {
		return nil, &InsufficientCandidatesError{
			Participants:        len(settings.Participants),
			PicksPerParticipant: settings.PicksPerParticipant,
			Available:           available,
		}
	}

	if req.RandomizeOrder {
		a.shuffle(settings.Participants)
	}

	now := a.clock.Now().UTC()
	d := &models.Draft{
		LeagueID:            req.LeagueID,
		Status:              models.DraftStatusActive,
		Order:               pick.BuildSnakeOrder(settings.Participants, settings.PicksPerParticipant),
		CurrentPickIndex:    0,
		TimerSeconds:        settings.TimerSeconds,
		PicksPerParticipant: settings.PicksPerParticipant,
		StartedAt:           now,
		LastPickAt:          now,
	}
	if existing != nil {
		d.Version = existing.Version
	}

	started, err := events.New(req.LeagueID, events.TypeDraftStarted, events.DraftStartedPayload{
		LeagueID:            req.LeagueID.String(),
		StartedAt:           now,
		Participants:        settings.Participants,
		PicksPerParticipant: settings.PicksPerParticipant,
		TotalPicks:          len(d.Order),
		TimerSeconds:        settings.TimerSeconds,
		FirstParticipant:    d.Order[0],
		Deadline:            d.Deadline(),
	}, now)
	if err != nil {
		return nil, err
	}

	if err := a.repo.SaveDraft(ctx, d, started); err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) {
			return nil, fmt.Errorf("draft changed while starting: %w", err)
		}
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	prev := league.DraftStatus
	league.DraftStatus = models.LeagueDraftActive
	league.DraftSettings = &settings
	league.UpdatedAt = now
	if err := a.repo.SaveLeague(ctx, league); err != nil {
		league.DraftStatus = prev
		a.restoreLeagueFlag(ctx, req.LeagueID, prev)
		return nil, fmt.Errorf("failed to mark league draft active: %w", err)
	}

	log.Info().
		Str("league_id", req.LeagueID.String()).
		Strs("participants", settings.Participants).
		Int("picks_per_participant", settings.PicksPerParticipant).
		Int("timer_seconds", settings.TimerSeconds).
		Msg("draft started")
	return d, nil
}

// restoreLeagueFlag puts the league flag back after a failed start. The failed
// write may still have landed (a commit whose acknowledgement was lost), so the
// stored value is checked rather than assumed.
func (a *App) restoreLeagueFlag(ctx context.Context, leagueID uuid.UUID, prev models.LeagueDraftStatus) {
	league, err := a.repo.LoadLeague(ctx, leagueID)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to reload league for flag rollback")
		return
	}
	if league.DraftStatus == prev {
		return
	}
	league.DraftStatus = prev
	if err := a.repo.SaveLeague(ctx, league); err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to roll back league draft flag")
	}
}

// ResetDraft discards the draft from any state. Teams are not touched, and the
// league flag returns to pending.
func (a *App) ResetDraft(ctx context.Context, leagueID uuid.UUID, callerID string) (*models.Draft, error) {
	var reset *models.Draft

	backoff := retry.WithMaxRetries(5, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		d, err := a.resetOnce(ctx, leagueID, callerID)
		if errors.Is(err, docstore.ErrVersionConflict) {
			return retry.RetryableError(err)
		}
		reset = d
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("league_id", leagueID.String()).Msg("draft reset")
	return reset, nil
}

func (a *App) resetOnce(ctx context.Context, leagueID uuid.UUID, callerID string) (*models.Draft, error) {
	league, err := a.repo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	if league.CommissionerID != callerID {
		return nil, ErrNotCommissioner
	}

	existing, err := a.repo.LoadDraft(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	now := a.clock.Now().UTC()
	d := &models.Draft{LeagueID: leagueID}
	payload := events.DraftResetPayload{
		LeagueID:       leagueID.String(),
		ResetAt:        now,
		PreviousStatus: models.DraftStatusPending,
	}
	if existing != nil {
		d = existing.Clone()
		payload.PreviousStatus = existing.Status
		payload.PicksDiscarded = len(existing.Picks)
	}
	d.Status = models.DraftStatusReset
	d.Order = nil
	d.Picks = nil
	d.CurrentPickIndex = 0
	d.CompletedAt = nil
	d.ResetAt = &now

	evt, err := events.New(leagueID, events.TypeDraftReset, payload, now)
	if err != nil {
		return nil, err
	}

	league.DraftStatus = models.LeagueDraftPending
	league.UpdatedAt = now
	if err := a.repo.SaveDraftAndLeague(ctx, d, league, evt); err != nil {
		return nil, err
	}
	return d, nil
}

// SaveDraftSettings stores settings on the league for the next start.
func (a *App) SaveDraftSettings(ctx context.Context, req SaveDraftSettingsRequest) (*models.DraftSettings, error) {
	league, err := a.repo.LoadLeague(ctx, req.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	if league.CommissionerID != req.CallerID {
		return nil, ErrNotCommissioner
	}
	if league.DraftStatus == models.LeagueDraftActive {
		return nil, ErrDraftInProgress
	}
	if err := validateSettings(league, req.Settings); err != nil {
		return nil, err
	}

	settings := req.Settings
	settings.Participants = append([]string(nil), req.Settings.Participants...)
	league.DraftSettings = &settings
	league.UpdatedAt = a.clock.Now().UTC()
	if err := a.repo.SaveLeague(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to save draft settings: %w", err)
	}
	return &settings, nil
}

// GetDraft returns the league's draft (nil before the first start) and its settings.
func (a *App) GetDraft(ctx context.Context, leagueID uuid.UUID) (*DraftView, error) {
	league, err := a.repo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	d, err := a.repo.LoadDraft(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return &DraftView{
		Draft:       d,
		Settings:    resolveSettings(league),
		LeagueState: league.DraftStatus,
	}, nil
}

func (a *App) shuffle(ids []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

// resolveSettings returns the league's saved settings or the defaults: every
// member in join order, three picks each, no timer.
func resolveSettings(league *models.League) models.DraftSettings {
	if league.DraftSettings != nil {
		s := *league.DraftSettings
		s.Participants = append([]string(nil), league.DraftSettings.Participants...)
		return s
	}
	return models.DraftSettings{
		Participants:        league.MemberIDs(),
		PicksPerParticipant: DefaultPicksPerParticipant,
	}
}

func validateSettings(league *models.League, s models.DraftSettings) error {
	if len(s.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrInvalidSettings)
	}
	seen := make(map[string]bool, len(s.Participants))
	for _, p := range s.Participants {
		if seen[p] {
			return fmt.Errorf("%w: participant %q listed twice", ErrInvalidSettings, p)
		}
		seen[p] = true
		if _, ok := league.Member(p); !ok {
			return fmt.Errorf("%w: %q is not a league member", ErrInvalidSettings, p)
		}
	}
	if s.PicksPerParticipant <= 0 {
		return fmt.Errorf("%w: picks per participant must be positive", ErrInvalidSettings)
	}
	if !slices.Contains(TimerPresets, s.TimerSeconds) {
		return ErrInvalidTimer
	}
	return nil
}
