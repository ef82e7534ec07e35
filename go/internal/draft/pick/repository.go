package pick

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// DraftRepository defines what the pick app layer needs from the document store
type DraftRepository interface {
	LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft, evts ...models.OutboxEvent) error
	SaveDraftAndLeague(ctx context.Context, draft *models.Draft, league *models.League, evts ...models.OutboxEvent) error
}
