package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	LeagueID  uuid.UUID
	PickIndex int
}

type fakePicker struct {
	calls chan call
	err   error
}

func newFakePicker() *fakePicker {
	return &fakePicker{calls: make(chan call, 16)}
}

func (p *fakePicker) AutoPick(ctx context.Context, leagueID uuid.UUID, pickIndex int) (*pick.PickResult, error) {
	p.calls <- call{LeagueID: leagueID, PickIndex: pickIndex}
	if p.err != nil {
		return nil, p.err
	}
	return &pick.PickResult{Pick: models.DraftPick{Candidate: "w"}}, nil
}

func (p *fakePicker) expect(t *testing.T) call {
	t.Helper()
	select {
	case c := <-p.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected an auto-pick")
		return call{}
	}
}

func (p *fakePicker) expectNone(t *testing.T) {
	t.Helper()
	select {
	case c := <-p.calls:
		t.Fatalf("unexpected auto-pick for pick %d", c.PickIndex)
	case <-time.After(50 * time.Millisecond):
	}
}

func startWatcher(t *testing.T, picker Picker) (*Orchestrator, *clockwork.FakeClock) {
	t.Helper()
	return startWatcherWithSlack(t, picker, 0)
}

func startWatcherWithSlack(t *testing.T, picker Picker, slack time.Duration) (*Orchestrator, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))
	orch := NewOrchestrator(picker, clock, 2).WithSlack(slack)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return orch, clock
}

func blockUntilTimers(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func TestSchedule_FiresAtDeadline(t *testing.T) {
	picker := newFakePicker()
	orch, clock := startWatcher(t, picker)
	leagueID := uuid.New()

	orch.Schedule(leagueID, 3, clock.Now().Add(time.Minute))
	blockUntilTimers(t, clock, 1)

	clock.Advance(59 * time.Second)
	picker.expectNone(t)

	clock.Advance(time.Second)
	assert.Equal(t, call{LeagueID: leagueID, PickIndex: 3}, picker.expect(t))
	assert.Zero(t, orch.ActiveTimers())
}

func TestSchedule_DuplicateEventArmsOnce(t *testing.T) {
	picker := newFakePicker()
	orch, clock := startWatcher(t, picker)
	leagueID := uuid.New()
	deadline := clock.Now().Add(time.Minute)

	orch.Schedule(leagueID, 0, deadline)
	orch.Schedule(leagueID, 0, deadline)
	blockUntilTimers(t, clock, 1)
	assert.Equal(t, 1, orch.ActiveTimers())

	clock.Advance(time.Minute)
	picker.expect(t)
	picker.expectNone(t)
}

func TestSchedule_LaterTurnReplacesEarlier(t *testing.T) {
	picker := newFakePicker()
	orch, clock := startWatcher(t, picker)
	leagueID := uuid.New()
	start := clock.Now()

	orch.Schedule(leagueID, 0, start.Add(time.Minute))
	orch.Schedule(leagueID, 1, start.Add(2*time.Minute))
	// a stale event for an earlier turn does not rearm
	orch.Schedule(leagueID, 0, start.Add(time.Minute))
	blockUntilTimers(t, clock, 1)

	clock.Advance(time.Minute)
	picker.expectNone(t)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, picker.expect(t).PickIndex)
}

func TestSchedule_TimersAreIndependentPerLeague(t *testing.T) {
	picker := newFakePicker()
	orch, clock := startWatcher(t, picker)
	first, second := uuid.New(), uuid.New()

	orch.Schedule(first, 0, clock.Now().Add(time.Minute))
	orch.Schedule(second, 0, clock.Now().Add(2*time.Minute))
	blockUntilTimers(t, clock, 2)

	clock.Advance(time.Minute)
	assert.Equal(t, first, picker.expect(t).LeagueID)

	clock.Advance(time.Minute)
	assert.Equal(t, second, picker.expect(t).LeagueID)
}

func TestHandleDomainEvent(t *testing.T) {
	ctx := context.Background()

	encode := func(t *testing.T, v any) []byte {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}

	t.Run("started and pick made arm timers", func(t *testing.T) {
		picker := newFakePicker()
		orch, clock := startWatcher(t, picker)
		leagueID := uuid.New()

		deadline := clock.Now().Add(90 * time.Second)
		require.NoError(t, orch.HandleDomainEvent(ctx, events.TypeDraftStarted, leagueID,
			encode(t, events.DraftStartedPayload{TimerSeconds: 90, Deadline: &deadline})))
		blockUntilTimers(t, clock, 1)

		next := clock.Now().Add(2 * time.Minute)
		require.NoError(t, orch.HandleDomainEvent(ctx, events.TypePickMade, leagueID,
			encode(t, events.PickMadePayload{NextPickIndex: 1, Deadline: &next})))

		clock.Advance(90 * time.Second)
		picker.expectNone(t)
		clock.Advance(30 * time.Second)
		assert.Equal(t, 1, picker.expect(t).PickIndex)
	})

	t.Run("untimed draft arms nothing", func(t *testing.T) {
		orch, _ := startWatcher(t, newFakePicker())
		require.NoError(t, orch.HandleDomainEvent(ctx, events.TypeDraftStarted, uuid.New(),
			encode(t, events.DraftStartedPayload{})))
		assert.Zero(t, orch.ActiveTimers())
	})

	t.Run("completion and reset cancel", func(t *testing.T) {
		picker := newFakePicker()
		orch, clock := startWatcher(t, picker)

		for _, eventType := range []string{events.TypeDraftCompleted, events.TypeDraftReset} {
			leagueID := uuid.New()
			orch.Schedule(leagueID, 4, clock.Now().Add(time.Minute))
			require.Equal(t, 1, orch.ActiveTimers())

			require.NoError(t, orch.HandleDomainEvent(ctx, eventType, leagueID, []byte(`{}`)))
			assert.Zero(t, orch.ActiveTimers())
		}
		clock.Advance(time.Hour)
		picker.expectNone(t)
	})

	t.Run("restart after reset schedules index zero again", func(t *testing.T) {
		picker := newFakePicker()
		orch, clock := startWatcher(t, picker)
		leagueID := uuid.New()

		orch.Schedule(leagueID, 5, clock.Now().Add(time.Hour))
		deadline := clock.Now().Add(time.Minute)
		require.NoError(t, orch.HandleDomainEvent(ctx, events.TypeDraftStarted, leagueID,
			encode(t, events.DraftStartedPayload{Deadline: &deadline})))
		blockUntilTimers(t, clock, 1)

		clock.Advance(time.Minute)
		assert.Equal(t, 0, picker.expect(t).PickIndex)
	})

	t.Run("malformed payload", func(t *testing.T) {
		orch, _ := startWatcher(t, newFakePicker())
		assert.Error(t, orch.HandleDomainEvent(ctx, events.TypePickMade, uuid.New(), []byte(`{`)))
	})
}

func TestHandleTimeout_RearmsWhenServiceClockIsBehind(t *testing.T) {
	picker := newFakePicker()
	picker.err = pick.ErrTurnNotExpired
	orch, clock := startWatcherWithSlack(t, picker, time.Second)
	leagueID := uuid.New()

	orch.Schedule(leagueID, 0, clock.Now())
	blockUntilTimers(t, clock, 1)
	clock.Advance(time.Second)
	picker.expect(t)

	// rearmed for one slack interval
	blockUntilTimers(t, clock, 1)
	clock.Advance(time.Second)
	assert.Equal(t, 0, picker.expect(t).PickIndex)
}

func TestRecover(t *testing.T) {
	picker := newFakePicker()
	orch, clock := startWatcher(t, picker)
	now := clock.Now()

	overdue := &models.Draft{
		LeagueID: uuid.New(), Status: models.DraftStatusActive,
		Order: []string{"A", "B"}, CurrentPickIndex: 1, TimerSeconds: 60, LastPickAt: now.Add(-2 * time.Minute),
	}
	pending := &models.Draft{
		LeagueID: uuid.New(), Status: models.DraftStatusActive,
		Order: []string{"A", "B"}, TimerSeconds: 60, LastPickAt: now,
	}
	untimed := &models.Draft{
		LeagueID: uuid.New(), Status: models.DraftStatusActive,
		Order: []string{"A", "B"}, LastPickAt: now,
	}

	orch.Recover(context.Background(), []*models.Draft{overdue, pending, untimed})

	assert.Equal(t, call{LeagueID: overdue.LeagueID, PickIndex: 1}, picker.expect(t))
	blockUntilTimers(t, clock, 1)
	clock.Advance(time.Minute)
	assert.Equal(t, call{LeagueID: pending.LeagueID, PickIndex: 0}, picker.expect(t))
	picker.expectNone(t)
}

// The watcher and a late manual expiry race for the same turn; the turn is
// resolved exactly once.
func TestWatcher_AutoPicksThroughPickApp(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC))

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
		TimerSeconds:        60,
		StartedAt:           clock.Now(),
		LastPickAt:          clock.Now(),
	}))

	app := pick.NewApp(store, clock, pick.NewSeededStrategy(7))
	orch := NewOrchestrator(app, clock, 2).WithSlack(0)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = orch.Run(runCtx) }()

	active, err := store.ListActiveDrafts(ctx)
	require.NoError(t, err)
	orch.Recover(ctx, active)
	blockUntilTimers(t, clock, 1)

	clock.Advance(time.Minute)
	// a second expiry for the same turn either wins or is rejected
	_, _ = app.AutoPick(ctx, league.ID, 0)

	require.Eventually(t, func() bool {
		d, err := store.LoadDraft(ctx, league.ID)
		return err == nil && len(d.Picks) == 1
	}, time.Second, 5*time.Millisecond)

	d, err := store.LoadDraft(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.CurrentPickIndex)
	assert.True(t, d.Picks[0].AutoPicked)
	assert.Equal(t, "A", d.Picks[0].ParticipantID)

	_, err = app.AutoPick(ctx, league.ID, 0)
	assert.ErrorIs(t, err, pick.ErrPickAlreadyResolved)
}
