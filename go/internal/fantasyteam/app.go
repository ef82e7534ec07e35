package fantasyteam

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNoTeam = errors.New("participant has no team in this league")

// App handles fantasy team reads
type App struct {
	leaguesRepo LeaguesRepository
}

// NewApp creates a new fantasy teams App
func NewApp(leaguesRepo LeaguesRepository) *App {
	return &App{leaguesRepo: leaguesRepo}
}

// ListTeams returns every team in the league
func (a *App) ListTeams(ctx context.Context, leagueID uuid.UUID) ([]Team, error) {
	league, err := a.leaguesRepo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return List(league), nil
}

// GetTeamByOwner returns the owner's team in the league
func (a *App) GetTeamByOwner(ctx context.Context, leagueID uuid.UUID, owner string) (*Team, error) {
	league, err := a.leaguesRepo.LoadLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	name, ok := OwnedBy(league.Teams, owner)
	if !ok {
		return nil, ErrNoTeam
	}
	for _, t := range List(league) {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, ErrNoTeam
}
