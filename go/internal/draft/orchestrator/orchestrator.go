// Package orchestrator is the single deadline watcher. It keeps one timer per
// timed draft and asks the pick service to auto-pick when a turn runs out.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultSlack is added to each deadline before firing, so a watcher whose
// clock runs slightly ahead of the pick service does not fire early.
const DefaultSlack = 250 * time.Millisecond

// Picker resolves an expired turn. The pick app satisfies it in-process and
// PickClient satisfies it over RPC.
type Picker interface {
	AutoPick(ctx context.Context, leagueID uuid.UUID, pickIndex int) (*pick.PickResult, error)
}

// dueTurn identifies the turn a timer was armed for.
type dueTurn struct {
	LeagueID  uuid.UUID
	PickIndex int
}

type Orchestrator struct {
	picker     Picker
	clock      clockwork.Clock
	slack      time.Duration
	instanceID string

	// Worker pool configuration
	numWorkers int
	workCh     chan dueTurn

	// lastScheduled holds the pick index each league's timer is armed for, so a
	// redelivered event does not rearm it.
	lastScheduled   map[uuid.UUID]int
	lastScheduledMu sync.Mutex

	activeTimers   map[uuid.UUID]*armedTimer
	activeTimersMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewOrchestrator creates a watcher with a pool of numWorkers auto-pick workers.
func NewOrchestrator(picker Picker, clock clockwork.Clock, numWorkers int) *Orchestrator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Orchestrator{
		picker:        picker,
		clock:         clock,
		slack:         DefaultSlack,
		instanceID:    uuid.New().String()[:8],
		numWorkers:    numWorkers,
		workCh:        make(chan dueTurn, numWorkers*2),
		lastScheduled: make(map[uuid.UUID]int),
		activeTimers:  make(map[uuid.UUID]*armedTimer),
		done:          make(chan struct{}),
	}
}

// WithSlack overrides DefaultSlack.
func (o *Orchestrator) WithSlack(d time.Duration) *Orchestrator {
	o.slack = d
	return o
}

// Recover arms timers for drafts that were active before a restart. Turns whose
// deadline already passed fire immediately.
func (o *Orchestrator) Recover(ctx context.Context, drafts []*models.Draft) {
	recovered := 0
	for _, d := range drafts {
		deadline := d.Deadline()
		if d.Status != models.DraftStatusActive || deadline == nil {
			continue
		}
		o.Schedule(d.LeagueID, d.CurrentPickIndex, *deadline)
		recovered++
	}
	log.Info().
		Str("instance", o.instanceID).
		Int("drafts", len(drafts)).
		Int("timers", recovered).
		Msg("recovered draft timers")
}

// Run starts the worker pool and blocks until ctx is cancelled. Armed timers
// are stopped on return.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.numWorkers).
		Msg("deadline watcher started")

	var wg sync.WaitGroup
	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(ctx, &wg, i)
	}

	<-ctx.Done()
	log.Info().Str("instance", o.instanceID).Msg("deadline watcher shutting down")

	o.stopOnce.Do(func() { close(o.done) })
	o.activeTimersMu.Lock()
	for leagueID, armed := range o.activeTimers {
		armed.timer.Stop()
		log.Debug().Str("league_id", leagueID.String()).Msg("cancelled timer on shutdown")
	}
	o.activeTimers = make(map[uuid.UUID]*armedTimer)
	o.activeTimersMu.Unlock()

	wg.Wait()
	log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	return nil
}

// ActiveTimers returns the number of armed timers.
func (o *Orchestrator) ActiveTimers() int {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	return len(o.activeTimers)
}
