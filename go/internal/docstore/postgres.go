package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Postgres stores documents as JSONB rows. Conditional writes are plain
// UPDATE ... WHERE version = $n statements inside one transaction.
type Postgres struct {
	pool *pgxpool.Pool
	hub  *hub

	// listener is set by StartListening; without it subscribers only see writes
	// made through this process.
	listener *changeListener
}

var (
	_ Store            = (*Postgres)(nil)
	_ OutboxRepository = (*Postgres)(nil)
)

// NewPostgres wraps an existing pool. Migrations are applied separately by Open.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, hub: newHub()}
}

func (p *Postgres) LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	var (
		doc     []byte
		version int64
	)
	err := p.pool.QueryRow(ctx, `SELECT doc, version FROM leagues WHERE id = $1`, leagueID.String()).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	return decodeLeague(doc, version)
}

func (p *Postgres) SaveLeague(ctx context.Context, league *models.League, evts ...models.OutboxEvent) error {
	var next int64
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var err error
		if next, err = pgWriteLeague(ctx, tx, league); err != nil {
			return err
		}
		return pgInsertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	league.Version = next
	return nil
}

func (p *Postgres) LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error) {
	var (
		doc     []byte
		version int64
	)
	err := p.pool.QueryRow(ctx, `SELECT doc, version FROM drafts WHERE league_id = $1`, leagueID.String()).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return decodeDraft(doc, version)
}

func (p *Postgres) SaveDraft(ctx context.Context, draft *models.Draft, evts ...models.OutboxEvent) error {
	var next int64
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var err error
		if next, err = pgWriteDraft(ctx, tx, draft); err != nil {
			return err
		}
		return pgInsertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	draft.Version = next
	p.publishLocal(draft)
	return nil
}

func (p *Postgres) SaveDraftAndLeague(ctx context.Context, draft *models.Draft, league *models.League, evts ...models.OutboxEvent) error {
	if draft.LeagueID != league.ID {
		return fmt.Errorf("draft league %s does not match league %s", draft.LeagueID, league.ID)
	}

	var nextDraft, nextLeague int64
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var err error
		if nextDraft, err = pgWriteDraft(ctx, tx, draft); err != nil {
			return err
		}
		if nextLeague, err = pgWriteLeague(ctx, tx, league); err != nil {
			return err
		}
		return pgInsertOutbox(ctx, tx, evts)
	})
	if err != nil {
		return err
	}
	draft.Version = nextDraft
	league.Version = nextLeague
	p.publishLocal(draft)
	return nil
}

func (p *Postgres) ListActiveDrafts(ctx context.Context) ([]*models.Draft, error) {
	rows, err := p.pool.Query(ctx, `SELECT doc, version FROM drafts WHERE status = $1 ORDER BY league_id`, string(models.DraftStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active drafts: %w", err)
	}
	defer rows.Close()

	var out []*models.Draft
	for rows.Next() {
		var (
			doc     []byte
			version int64
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		d, err := decodeDraft(doc, version)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) SubscribeDraft(ctx context.Context, leagueID uuid.UUID, onChange func(*models.Draft)) (func(), error) {
	return p.hub.add(leagueID, onChange), nil
}

func (p *Postgres) FetchUnsentOutbox(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, league_id, event_type, payload, created_at, sent_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox: %w", err)
	}
	defer rows.Close()

	var out []models.OutboxEvent
	for rows.Next() {
		e, err := pgScanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (p *Postgres) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, league_id, event_type, payload, created_at, sent_at
		FROM draft_outbox WHERE id = $1`, id.String())
	e, err := pgScanOutbox(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
	}
	return e, err
}

func (p *Postgres) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `UPDATE draft_outbox SET sent_at = NOW() WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark outbox sent: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.listener != nil {
		p.listener.close()
	}
	p.pool.Close()
	return nil
}

// publishLocal delivers a write made by this process when no change listener is running.
// With a listener, delivery comes back through the draft_changes channel instead.
func (p *Postgres) publishLocal(draft *models.Draft) {
	if p.listener == nil {
		p.hub.publish(draft)
	}
}

func pgWriteLeague(ctx context.Context, tx pgx.Tx, league *models.League) (int64, error) {
	next, doc, err := encodeLeague(league)
	if err != nil {
		return 0, err
	}

	var affected int64
	if league.Version == 0 {
		tag, err := tx.Exec(ctx, `
			INSERT INTO leagues (id, doc, version, updated_at) VALUES ($1, $2::jsonb, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			league.ID.String(), string(doc), next, time.Now().UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert league: %w", err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE leagues SET doc = $1::jsonb, version = $2, updated_at = $3
			WHERE id = $4 AND version = $5`,
			string(doc), next, time.Now().UTC(), league.ID.String(), league.Version)
		if err != nil {
			return 0, fmt.Errorf("failed to update league: %w", err)
		}
		affected = tag.RowsAffected()
	}
	if affected != 1 {
		return 0, fmt.Errorf("league %s expected version %d: %w", league.ID, league.Version, ErrVersionConflict)
	}
	return next, nil
}

func pgWriteDraft(ctx context.Context, tx pgx.Tx, draft *models.Draft) (int64, error) {
	next, doc, err := encodeDraft(draft)
	if err != nil {
		return 0, err
	}

	var affected int64
	if draft.Version == 0 {
		tag, err := tx.Exec(ctx, `
			INSERT INTO drafts (league_id, doc, status, version, updated_at) VALUES ($1, $2::jsonb, $3, $4, $5)
			ON CONFLICT (league_id) DO NOTHING`,
			draft.LeagueID.String(), string(doc), string(draft.Status), next, time.Now().UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert draft: %w", err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE drafts SET doc = $1::jsonb, status = $2, version = $3, updated_at = $4
			WHERE league_id = $5 AND version = $6`,
			string(doc), string(draft.Status), next, time.Now().UTC(), draft.LeagueID.String(), draft.Version)
		if err != nil {
			return 0, fmt.Errorf("failed to update draft: %w", err)
		}
		affected = tag.RowsAffected()
	}
	if affected != 1 {
		return 0, fmt.Errorf("draft %s expected version %d: %w", draft.LeagueID, draft.Version, ErrVersionConflict)
	}
	return next, nil
}

func pgInsertOutbox(ctx context.Context, tx pgx.Tx, evts []models.OutboxEvent) error {
	for _, e := range evts {
		var payload *string
		if len(e.Payload) > 0 {
			s := string(e.Payload)
			payload = &s
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO draft_outbox (id, league_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4::jsonb, $5)`,
			e.ID.String(), e.LeagueID.String(), e.EventType, payload, e.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert %s outbox event: %w", e.EventType, err)
		}
	}
	if len(evts) > 0 {
		log.Debug().Int("count", len(evts)).Msg("outbox events staged")
	}
	return nil
}

func pgScanOutbox(row pgx.Row) (*models.OutboxEvent, error) {
	var (
		id, leagueID uuid.UUID
		e            models.OutboxEvent
		payload      []byte
		sentAt       *time.Time
	)
	if err := row.Scan(&id, &leagueID, &e.EventType, &payload, &e.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	e.ID = id
	e.LeagueID = leagueID
	e.Payload = payload
	if sentAt != nil {
		t := sentAt.UTC()
		e.SentAt = &t
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
