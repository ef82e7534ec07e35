package leagues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
)

var ErrInvalidLeague = errors.New("invalid league")

// App handles leagues business logic
type App struct {
	repo  LeaguesRepository
	clock clockwork.Clock
}

// NewApp creates a new leagues App
func NewApp(repo LeaguesRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// CreateLeague creates a new league with validation
func (a *App) CreateLeague(ctx context.Context, req CreateLeagueRequest) (*models.League, error) {
	if err := a.validateCreateLeagueRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := a.clock.Now().UTC()
	league := &models.League{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(req.Name),
		Season:         req.Season,
		CommissionerID: req.CommissionerID,
		Teams:          map[string]models.FantasyTeam{},
		Contestants:    append([]models.Contestant(nil), req.Contestants...),
		DraftStatus:    models.LeagueDraftPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, m := range req.Members {
		if m.JoinedAt.IsZero() {
			m.JoinedAt = now
		}
		league.Members = append(league.Members, m)
	}
	if _, ok := league.Member(req.CommissionerID); !ok {
		league.Members = append([]models.Member{{ID: req.CommissionerID, DisplayName: req.CommissionerID, JoinedAt: now}}, league.Members...)
	}

	if err := a.repo.SaveLeague(ctx, league); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}

	log.Info().
		Str("league_id", league.ID.String()).
		Str("name", league.Name).
		Int("members", len(league.Members)).
		Int("contestants", len(league.Contestants)).
		Msg("created league")
	return league, nil
}

// GetLeague retrieves a league by ID
func (a *App) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	league, err := a.repo.LoadLeague(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return league, nil
}

func (a *App) validateCreateLeagueRequest(req CreateLeagueRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLeague)
	}
	if req.CommissionerID == "" {
		return fmt.Errorf("%w: commissioner is required", ErrInvalidLeague)
	}

	seen := make(map[string]bool)
	for _, m := range req.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: member without id", ErrInvalidLeague)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: member %q listed twice", ErrInvalidLeague, m.ID)
		}
		seen[m.ID] = true
	}

	names := make(map[string]bool)
	for _, c := range req.Contestants {
		if c.Name == "" {
			return fmt.Errorf("%w: contestant without name", ErrInvalidLeague)
		}
		if names[c.Name] {
			return fmt.Errorf("%w: contestant %q listed twice", ErrInvalidLeague, c.Name)
		}
		names[c.Name] = true
	}
	return nil
}
