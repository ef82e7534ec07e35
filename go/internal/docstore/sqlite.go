package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/mcdev12/castaway/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLite is a single-node Store on an embedded database file.
type SQLite struct {
	db     *sql.DB
	hub    *hub
	notify chan uuid.UUID
}

var (
	_ Store            = (*SQLite)(nil)
	_ OutboxRepository = (*SQLite)(nil)
	_ Notifier         = (*SQLite)(nil)
)

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps conditional writes serial.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := Migrate(ctx, db, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("sqlite document store ready")
	return &SQLite{
		db:     db,
		hub:    newHub(),
		notify: make(chan uuid.UUID, 256),
	}, nil
}

type sqliteQueries struct {
	tx *sql.Tx
}

func newSQLiteQueries(tx *sql.Tx) *sqliteQueries {
	return &sqliteQueries{tx: tx}
}

func (s *SQLite) LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	var (
		doc     []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT doc, version FROM leagues WHERE id = ?`, leagueID.String()).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load league: %w", err)
	}
	return decodeLeague(doc, version)
}

func (s *SQLite) SaveLeague(ctx context.Context, league *models.League, evts ...models.OutboxEvent) error {
	var next int64
	err := sqlutil.Run(ctx, s.db, newSQLiteQueries, func(q *sqliteQueries) error {
		var err error
		if next, err = q.writeLeague(ctx, league); err != nil {
			return err
		}
		return q.insertOutbox(ctx, evts)
	})
	if err != nil {
		return err
	}
	league.Version = next
	notify(s.notify, evts)
	return nil
}

func (s *SQLite) LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error) {
	var (
		doc     []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT doc, version FROM drafts WHERE league_id = ?`, leagueID.String()).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return decodeDraft(doc, version)
}

func (s *SQLite) SaveDraft(ctx context.Context, draft *models.Draft, evts ...models.OutboxEvent) error {
	var next int64
	err := sqlutil.Run(ctx, s.db, newSQLiteQueries, func(q *sqliteQueries) error {
		var err error
		if next, err = q.writeDraft(ctx, draft); err != nil {
			return err
		}
		return q.insertOutbox(ctx, evts)
	})
	if err != nil {
		return err
	}
	draft.Version = next
	s.hub.publish(draft)
	notify(s.notify, evts)
	return nil
}

func (s *SQLite) SaveDraftAndLeague(ctx context.Context, draft *models.Draft, league *models.League, evts ...models.OutboxEvent) error {
	if draft.LeagueID != league.ID {
		return fmt.Errorf("draft league %s does not match league %s", draft.LeagueID, league.ID)
	}

	var nextDraft, nextLeague int64
	err := sqlutil.Run(ctx, s.db, newSQLiteQueries, func(q *sqliteQueries) error {
		var err error
		if nextDraft, err = q.writeDraft(ctx, draft); err != nil {
			return err
		}
		if nextLeague, err = q.writeLeague(ctx, league); err != nil {
			return err
		}
		return q.insertOutbox(ctx, evts)
	})
	if err != nil {
		return err
	}
	draft.Version = nextDraft
	league.Version = nextLeague
	s.hub.publish(draft)
	notify(s.notify, evts)
	return nil
}

func (s *SQLite) ListActiveDrafts(ctx context.Context) ([]*models.Draft, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc, version FROM drafts WHERE status = ? ORDER BY league_id`, string(models.DraftStatusActive))
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

func (s *SQLite) SubscribeDraft(ctx context.Context, leagueID uuid.UUID, onChange func(*models.Draft)) (func(), error) {
	return s.hub.add(leagueID, onChange), nil
}

func (s *SQLite) Notifications() <-chan uuid.UUID {
	return s.notify
}

func (s *SQLite) FetchUnsentOutbox(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, league_id, event_type, payload, created_at, sent_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox: %w", err)
	}
	defer rows.Close()

	var out []models.OutboxEvent
	for rows.Next() {
		e, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *SQLite) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, league_id, event_type, payload, created_at, sent_at
		FROM draft_outbox WHERE id = ?`, id.String())
	e, err := scanOutbox(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
	}
	return e, err
}

func (s *SQLite) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE draft_outbox SET sent_at = ? WHERE id = ?`, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark outbox sent: %w", err)
	}
	return expectOneRow(res, fmt.Errorf("outbox event %s: %w", id, ErrNotFound))
}

// expectOneRow returns miss when a conditional write matched no row. A driver
// failure is returned as itself so callers do not retry it as a conflict.
func expectOneRow(res sql.Result, miss error) error {
	ok, err := sqlutil.RowsChanged(res)
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if !ok {
		return miss
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (q *sqliteQueries) writeLeague(ctx context.Context, league *models.League) (int64, error) {
	next, doc, err := encodeLeague(league)
	if err != nil {
		return 0, err
	}

	var res sql.Result
	if league.Version == 0 {
		res, err = q.tx.ExecContext(ctx, `
			INSERT INTO leagues (id, doc, version, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			league.ID.String(), string(doc), next, time.Now().UTC())
	} else {
		res, err = q.tx.ExecContext(ctx, `
			UPDATE leagues SET doc = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			string(doc), next, time.Now().UTC(), league.ID.String(), league.Version)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write league: %w", err)
	}
	if err := expectOneRow(res, fmt.Errorf("league %s expected version %d: %w", league.ID, league.Version, ErrVersionConflict)); err != nil {
		return 0, err
	}
	return next, nil
}

func (q *sqliteQueries) writeDraft(ctx context.Context, draft *models.Draft) (int64, error) {
	next, doc, err := encodeDraft(draft)
	if err != nil {
		return 0, err
	}

	var res sql.Result
	if draft.Version == 0 {
		res, err = q.tx.ExecContext(ctx, `
			INSERT INTO drafts (league_id, doc, status, version, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (league_id) DO NOTHING`,
			draft.LeagueID.String(), string(doc), string(draft.Status), next, time.Now().UTC())
	} else {
		res, err = q.tx.ExecContext(ctx, `
			UPDATE drafts SET doc = ?, status = ?, version = ?, updated_at = ?
			WHERE league_id = ? AND version = ?`,
			string(doc), string(draft.Status), next, time.Now().UTC(), draft.LeagueID.String(), draft.Version)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write draft: %w", err)
	}
	if err := expectOneRow(res, fmt.Errorf("draft %s expected version %d: %w", draft.LeagueID, draft.Version, ErrVersionConflict)); err != nil {
		return 0, err
	}
	return next, nil
}

func (q *sqliteQueries) insertOutbox(ctx context.Context, evts []models.OutboxEvent) error {
	for _, e := range evts {
		_, err := q.tx.ExecContext(ctx, `
			INSERT INTO draft_outbox (id, league_id, event_type, payload, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID.String(), e.LeagueID.String(), e.EventType, sqlutil.ToNullJSON(e.Payload), e.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert %s outbox event: %w", e.EventType, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutbox(row rowScanner) (*models.OutboxEvent, error) {
	var (
		id, leagueID string
		e            models.OutboxEvent
		payload      sql.NullString
		sentAt       sql.NullTime
	)
	if err := row.Scan(&id, &leagueID, &e.EventType, &payload, &e.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid outbox id: %w", err)
	}
	if e.LeagueID, err = uuid.Parse(leagueID); err != nil {
		return nil, fmt.Errorf("invalid outbox league id: %w", err)
	}
	e.Payload = sqlutil.FromNullJSON(payload)
	e.SentAt = sqlutil.FromSqlTime(sentAt)
	return &e, nil
}

// encodeLeague marshals the league as it will look after the write.
func encodeLeague(league *models.League) (int64, []byte, error) {
	next := league.Version + 1
	c := league.Clone()
	c.Version = next
	doc, err := json.Marshal(c)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal league: %w", err)
	}
	return next, doc, nil
}

func encodeDraft(draft *models.Draft) (int64, []byte, error) {
	next := draft.Version + 1
	c := draft.Clone()
	c.Version = next
	doc, err := json.Marshal(c)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	return next, doc, nil
}

func decodeLeague(doc []byte, version int64) (*models.League, error) {
	var l models.League
	if err := json.Unmarshal(doc, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal league: %w", err)
	}
	l.Version = version
	return &l, nil
}

func decodeDraft(doc []byte, version int64) (*models.Draft, error) {
	var d models.Draft
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	d.Version = version
	return &d, nil
}
