package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
)

// Memory is an in-process Store. It backs tests and single-node development runs.
type Memory struct {
	mu      sync.Mutex
	leagues map[uuid.UUID]*models.League
	drafts  map[uuid.UUID]*models.Draft
	outbox  []models.OutboxEvent

	hub    *hub
	notify chan uuid.UUID
}

var (
	_ Store            = (*Memory)(nil)
	_ OutboxRepository = (*Memory)(nil)
	_ Notifier         = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		leagues: make(map[uuid.UUID]*models.League),
		drafts:  make(map[uuid.UUID]*models.Draft),
		hub:     newHub(),
		notify:  make(chan uuid.UUID, 256),
	}
}

func (m *Memory) LoadLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leagues[leagueID]
	if !ok {
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrNotFound)
	}
	return l.Clone(), nil
}

func (m *Memory) SaveLeague(ctx context.Context, league *models.League, evts ...models.OutboxEvent) error {
	m.mu.Lock()
	if err := m.checkLeague(league); err != nil {
		m.mu.Unlock()
		return err
	}
	m.putLeague(league)
	m.outbox = append(m.outbox, evts...)
	m.mu.Unlock()

	notify(m.notify, evts)
	return nil
}

func (m *Memory) LoadDraft(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[leagueID]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (m *Memory) SaveDraft(ctx context.Context, draft *models.Draft, evts ...models.OutboxEvent) error {
	m.mu.Lock()
	if err := m.checkDraft(draft); err != nil {
		m.mu.Unlock()
		return err
	}
	stored := m.putDraft(draft)
	m.outbox = append(m.outbox, evts...)
	m.mu.Unlock()

	m.hub.publish(stored)
	notify(m.notify, evts)
	return nil
}

func (m *Memory) SaveDraftAndLeague(ctx context.Context, draft *models.Draft, league *models.League, evts ...models.OutboxEvent) error {
	if draft.LeagueID != league.ID {
		return fmt.Errorf("draft league %s does not match league %s", draft.LeagueID, league.ID)
	}

	m.mu.Lock()
	if err := m.checkDraft(draft); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.checkLeague(league); err != nil {
		m.mu.Unlock()
		return err
	}
	stored := m.putDraft(draft)
	m.putLeague(league)
	m.outbox = append(m.outbox, evts...)
	m.mu.Unlock()

	m.hub.publish(stored)
	notify(m.notify, evts)
	return nil
}

func (m *Memory) ListActiveDrafts(ctx context.Context) ([]*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Draft
	for _, d := range m.drafts {
		if d.Status == models.DraftStatusActive {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeagueID.String() < out[j].LeagueID.String() })
	return out, nil
}

func (m *Memory) SubscribeDraft(ctx context.Context, leagueID uuid.UUID, onChange func(*models.Draft)) (func(), error) {
	return m.hub.add(leagueID, onChange), nil
}

func (m *Memory) Notifications() <-chan uuid.UUID {
	return m.notify
}

func (m *Memory) FetchUnsentOutbox(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.OutboxEvent
	for _, e := range m.outbox {
		if e.SentAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.outbox {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
}

func (m *Memory) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.outbox {
		if m.outbox[i].ID == id {
			now := time.Now().UTC()
			m.outbox[i].SentAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
}

// Outbox returns a copy of every recorded outbox event, sent or not.
func (m *Memory) Outbox() []models.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OutboxEvent(nil), m.outbox...)
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) checkLeague(league *models.League) error {
	var current int64
	if existing, ok := m.leagues[league.ID]; ok {
		current = existing.Version
	}
	if league.Version != current {
		return fmt.Errorf("league %s at version %d, write expected %d: %w", league.ID, current, league.Version, ErrVersionConflict)
	}
	return nil
}

func (m *Memory) checkDraft(draft *models.Draft) error {
	var current int64
	if existing, ok := m.drafts[draft.LeagueID]; ok {
		current = existing.Version
	}
	if draft.Version != current {
		return fmt.Errorf("draft %s at version %d, write expected %d: %w", draft.LeagueID, current, draft.Version, ErrVersionConflict)
	}
	return nil
}

func (m *Memory) putLeague(league *models.League) {
	league.Version++
	m.leagues[league.ID] = league.Clone()
}

func (m *Memory) putDraft(draft *models.Draft) *models.Draft {
	draft.Version++
	stored := draft.Clone()
	m.drafts[draft.LeagueID] = stored
	return stored.Clone()
}
