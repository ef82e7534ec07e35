package fantasyteam

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// LeaguesRepository defines what the app layer needs to read teams off a league
type LeaguesRepository interface {
	LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
}
