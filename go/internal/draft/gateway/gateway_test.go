package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayFixture struct {
	store    *docstore.Memory
	clock    *clockwork.FakeClock
	service  *Service
	server   *httptest.Server
	picks    *pick.App
	leagueID uuid.UUID
}

func newGatewayFixture(t *testing.T, timerSeconds int) *gatewayFixture {
	t.Helper()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))
	store := docstore.NewMemory()

	league := &models.League{
		ID:             uuid.New(),
		Name:           "Island",
		CommissionerID: "A",
		Members:        []models.Member{{ID: "A", DisplayName: "Ann"}, {ID: "B", DisplayName: "Ben"}},
		Contestants:    []models.Contestant{{Name: "w"}, {Name: "x"}, {Name: "y"}, {Name: "z"}},
		DraftStatus:    models.LeagueDraftActive,
	}
	require.NoError(t, store.SaveLeague(ctx, league))
	require.NoError(t, store.SaveDraft(ctx, &models.Draft{
		LeagueID:            league.ID,
		Status:              models.DraftStatusActive,
		Order:               pick.BuildSnakeOrder([]string{"A", "B"}, 2),
		PicksPerParticipant: 2,
		TimerSeconds:        timerSeconds,
		StartedAt:           clock.Now(),
		LastPickAt:          clock.Now(),
	}))

	service := NewService(DefaultConfig(), store, clock)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = service.Start(runCtx)
	}()

	r := chi.NewRouter()
	service.RegisterRoutes(r)
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})

	return &gatewayFixture{
		store:    store,
		clock:    clock,
		service:  service,
		server:   server,
		picks:    pick.NewApp(store, clock, pick.NewSeededStrategy(1)),
		leagueID: league.ID,
	}
}

func (f *gatewayFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads events until one of the wanted type arrives.
func next(t *testing.T, conn *websocket.Conn, want EventType) *DraftEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var event DraftEvent
		require.NoError(t, conn.ReadJSON(&event))
		if event.Type == want {
			return &event
		}
	}
}

func TestGateway_SnapshotOnConnectAndChange(t *testing.T) {
	f := newGatewayFixture(t, 0)
	conn := f.dial(t, "/ws/leagues/"+f.leagueID.String()+"/draft?user_id=A")

	board, err := ParseSnapshot(next(t, conn, EventTypeDraftSnapshot))
	require.NoError(t, err)
	assert.Equal(t, "A", board.Turn.ParticipantID)
	assert.Empty(t, board.Picks)
	assert.Nil(t, board.TimeRemaining)

	_, err = f.picks.MakePick(context.Background(), pick.MakePickRequest{LeagueID: f.leagueID, ParticipantID: "A", Candidate: "w"})
	require.NoError(t, err)

	board, err = ParseSnapshot(next(t, conn, EventTypeDraftSnapshot))
	require.NoError(t, err)
	require.Len(t, board.Picks, 1)
	assert.Equal(t, "B", board.Turn.ParticipantID)
	assert.Equal(t, []string{"w"}, board.RosterByParticipant["A"])
	assert.Equal(t, "Ann", board.DisplayNames["A"])
	assert.NotContains(t, board.Available, "w")
}

func TestGateway_TimerTick(t *testing.T) {
	f := newGatewayFixture(t, 60)
	conn := f.dial(t, "/ws/leagues/"+f.leagueID.String()+"/draft")
	next(t, conn, EventTypeDraftSnapshot)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(10 * time.Second)

	tick, err := ParseTimerTick(next(t, conn, EventTypeTimerTick))
	require.NoError(t, err)
	assert.Equal(t, 0, tick.PickIndex)
	assert.Equal(t, "A", tick.ParticipantID)
	assert.Equal(t, 50, tick.Remaining)
	require.NotNil(t, tick.Deadline)
}

func TestGateway_StatsAndUnsubscribe(t *testing.T) {
	f := newGatewayFixture(t, 0)
	path := "/ws/leagues/" + f.leagueID.String() + "/draft"

	first := f.dial(t, path)
	next(t, first, EventTypeDraftSnapshot)
	second := f.dial(t, path)
	next(t, second, EventTypeDraftSnapshot)

	stats := f.service.Stats()
	assert.Equal(t, 2, stats.TotalConnections)
	assert.Equal(t, 1, stats.ActiveLeagues)
	assert.Equal(t, 2, stats.LeagueConnections[f.leagueID.String()])

	first.Close()
	second.Close()
	require.Eventually(t, func() bool {
		return f.service.Stats().TotalConnections == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, f.service.Stats().ActiveLeagues)
}

func TestGateway_RejectsInvalidLeague(t *testing.T) {
	f := newGatewayFixture(t, 0)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/leagues/not-a-uuid/draft"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
