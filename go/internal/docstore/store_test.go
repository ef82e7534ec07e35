package docstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend interface {
	Store
	OutboxRepository
	Notifier
}

func backends(t *testing.T) map[string]func(t *testing.T) backend {
	return map[string]func(t *testing.T) backend{
		"memory": func(t *testing.T) backend {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) backend {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "castaway.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func testLeague() *models.League {
	return &models.League{
		ID:             uuid.New(),
		Name:           "Tribal Council",
		Season:         "47",
		CommissionerID: "alice",
		Members: []models.Member{
			{ID: "alice", DisplayName: "Alice"},
			{ID: "bob", DisplayName: "Bob"},
		},
		Teams:       map[string]models.FantasyTeam{},
		DraftStatus: models.LeagueDraftPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func testDraft(leagueID uuid.UUID) *models.Draft {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Draft{
		LeagueID:            leagueID,
		Status:              models.DraftStatusActive,
		Order:               []string{"alice", "bob", "bob", "alice"},
		PicksPerParticipant: 2,
		TimerSeconds:        60,
		StartedAt:           now,
		LastPickAt:          now,
	}
}

func testEvent(leagueID uuid.UUID, eventType string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:        uuid.New(),
		LeagueID:  leagueID,
		EventType: eventType,
		Payload:   []byte(`{"league_id":"` + leagueID.String() + `"}`),
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_LeagueVersioning(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			league := testLeague()

			require.NoError(t, s.SaveLeague(ctx, league))
			assert.Equal(t, int64(1), league.Version)

			loaded, err := s.LoadLeague(ctx, league.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), loaded.Version)
			assert.Equal(t, "Tribal Council", loaded.Name)

			// creating again with version 0 conflicts
			dup := testLeague()
			dup.ID = league.ID
			assert.ErrorIs(t, s.SaveLeague(ctx, dup), ErrVersionConflict)

			loaded.Name = "Renamed"
			require.NoError(t, s.SaveLeague(ctx, loaded))
			assert.Equal(t, int64(2), loaded.Version)

			// the first copy is now stale
			league.Name = "Stale"
			assert.ErrorIs(t, s.SaveLeague(ctx, league), ErrVersionConflict)
			assert.Equal(t, int64(1), league.Version)

			current, err := s.LoadLeague(ctx, league.ID)
			require.NoError(t, err)
			assert.Equal(t, "Renamed", current.Name)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			_, err := s.LoadLeague(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)

			d, err := s.LoadDraft(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, d)
		})
	}
}

func TestStore_DraftWithOutbox(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			league := testLeague()
			require.NoError(t, s.SaveLeague(ctx, league))

			draft := testDraft(league.ID)
			evt := testEvent(league.ID, "DraftStarted")
			require.NoError(t, s.SaveDraft(ctx, draft, evt))
			assert.Equal(t, int64(1), draft.Version)

			select {
			case id := <-s.Notifications():
				assert.Equal(t, evt.ID, id)
			case <-time.After(time.Second):
				t.Fatal("expected outbox notification")
			}

			unsent, err := s.FetchUnsentOutbox(ctx, 10)
			require.NoError(t, err)
			require.Len(t, unsent, 1)
			assert.Equal(t, "DraftStarted", unsent[0].EventType)
			assert.JSONEq(t, string(evt.Payload), string(unsent[0].Payload))

			byID, err := s.FetchOutboxByID(ctx, evt.ID)
			require.NoError(t, err)
			assert.Equal(t, league.ID, byID.LeagueID)
			assert.Nil(t, byID.SentAt)

			require.NoError(t, s.MarkOutboxSent(ctx, evt.ID))
			unsent, err = s.FetchUnsentOutbox(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, unsent)

			// a rejected write leaves no outbox row behind
			stale := testDraft(league.ID)
			assert.ErrorIs(t, s.SaveDraft(ctx, stale, testEvent(league.ID, "DraftStarted")), ErrVersionConflict)
			unsent, err = s.FetchUnsentOutbox(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, unsent)

			loaded, err := s.LoadDraft(ctx, league.ID)
			require.NoError(t, err)
			assert.Equal(t, draft.Order, loaded.Order)
			assert.True(t, draft.LastPickAt.Equal(loaded.LastPickAt))
		})
	}
}

func TestStore_SaveDraftAndLeagueIsAtomic(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			league := testLeague()
			require.NoError(t, s.SaveLeague(ctx, league))
			draft := testDraft(league.ID)
			require.NoError(t, s.SaveDraft(ctx, draft))

			// stale league: neither record moves
			staleLeague := league.Clone()
			league.Name = "bumped"
			require.NoError(t, s.SaveLeague(ctx, league))

			draft.Status = models.DraftStatusCompleted
			staleLeague.DraftStatus = models.LeagueDraftCompleted
			err := s.SaveDraftAndLeague(ctx, draft, staleLeague)
			assert.ErrorIs(t, err, ErrVersionConflict)
			assert.Equal(t, int64(1), draft.Version)

			stored, err := s.LoadDraft(ctx, league.ID)
			require.NoError(t, err)
			assert.Equal(t, models.DraftStatusActive, stored.Status)
			assert.Equal(t, int64(1), stored.Version)

			// fresh league: both advance
			fresh, err := s.LoadLeague(ctx, league.ID)
			require.NoError(t, err)
			fresh.DraftStatus = models.LeagueDraftCompleted
			fresh.Teams["Alice's Team"] = models.FantasyTeam{Owner: "alice", Members: []string{"w", "z"}}
			require.NoError(t, s.SaveDraftAndLeague(ctx, draft, fresh, testEvent(league.ID, "DraftCompleted")))
			assert.Equal(t, int64(2), draft.Version)
			assert.Equal(t, int64(3), fresh.Version)

			l, err := s.LoadLeague(ctx, league.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"w", "z"}, l.Teams["Alice's Team"].Members)

			active, err := s.ListActiveDrafts(ctx)
			require.NoError(t, err)
			assert.Empty(t, active)
		})
	}
}

func TestStore_ListActiveDrafts(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			var want []uuid.UUID
			for i := 0; i < 3; i++ {
				league := testLeague()
				require.NoError(t, s.SaveLeague(ctx, league))
				d := testDraft(league.ID)
				if i == 1 {
					d.Status = models.DraftStatusReset
				} else {
					want = append(want, league.ID)
				}
				require.NoError(t, s.SaveDraft(ctx, d))
			}

			active, err := s.ListActiveDrafts(ctx)
			require.NoError(t, err)
			var got []uuid.UUID
			for _, d := range active {
				got = append(got, d.LeagueID)
			}
			assert.ElementsMatch(t, want, got)
		})
	}
}

func TestStore_SubscribeDraft(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			league := testLeague()
			require.NoError(t, s.SaveLeague(ctx, league))

			var (
				mu   sync.Mutex
				seen []int64
			)
			cancel, err := s.SubscribeDraft(ctx, league.ID, func(d *models.Draft) {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, d.Version)
				d.Order = nil // subscribers get their own copy
			})
			require.NoError(t, err)

			draft := testDraft(league.ID)
			require.NoError(t, s.SaveDraft(ctx, draft))
			draft.CurrentPickIndex = 1
			require.NoError(t, s.SaveDraft(ctx, draft))
			assert.Len(t, draft.Order, 4)

			cancel()
			cancel()
			draft.CurrentPickIndex = 2
			require.NoError(t, s.SaveDraft(ctx, draft))

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, []int64{1, 2}, seen)
		})
	}
}
