// Package docstore persists league and draft documents. Every document carries a
// version and every write is conditional on the version the caller read.
package docstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version conflict")
)

// Store is the document store the draft engine depends on.
//
// Save methods require the record's Version to match the stored version (0 creates a
// new record). On success the stored version is Version+1 and the caller's record is
// updated to it. Outbox events passed to a save are committed in the same write.
type Store interface {
	LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	SaveLeague(ctx context.Context, league *models.League, evts ...models.OutboxEvent) error

	// LoadDraft returns nil and no error when the league has never started a draft.
	LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft *models.Draft, evts ...models.OutboxEvent) error

	// SaveDraftAndLeague writes both records atomically. Either both versions
	// advance or neither does.
	SaveDraftAndLeague(ctx context.Context, draft *models.Draft, league *models.League, evts ...models.OutboxEvent) error

	// ListActiveDrafts returns drafts with status active, used to rebuild timers at boot.
	ListActiveDrafts(ctx context.Context) ([]*models.Draft, error)

	// SubscribeDraft calls onChange with every committed version of the league's draft.
	// The returned func cancels the subscription.
	SubscribeDraft(ctx context.Context, leagueID uuid.UUID, onChange func(*models.Draft)) (func(), error)

	Close() error
}

// OutboxRepository exposes unsent outbox events to the relay.
type OutboxRepository interface {
	FetchUnsentOutbox(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
}

// Notifier is implemented by stores that signal new outbox rows in-process.
type Notifier interface {
	Notifications() <-chan uuid.UUID
}
