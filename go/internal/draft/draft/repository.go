package draft

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// DraftRepository defines what the draft app layer needs from the document store
type DraftRepository interface {
	LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	SaveLeague(ctx context.Context, league *models.League, evts ...models.OutboxEvent) error
	LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft, evts ...models.OutboxEvent) error
	SaveDraftAndLeague(ctx context.Context, draft *models.Draft, league *models.League, evts ...models.OutboxEvent) error
}
