package leagues

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// LeaguesRepository defines what the leagues app layer needs from the document store
type LeaguesRepository interface {
	LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	SaveLeague(ctx context.Context, league *models.League, evts ...models.OutboxEvent) error
}
