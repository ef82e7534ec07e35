package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Schedule arms the league's timer for the turn at pickIndex. Only one timer per
// league is armed: a later turn replaces it, while the same or an earlier turn
// is ignored.
func (o *Orchestrator) Schedule(leagueID uuid.UUID, pickIndex int, deadline time.Time) {
	o.lastScheduledMu.Lock()
	if last, exists := o.lastScheduled[leagueID]; exists && pickIndex <= last {
		o.lastScheduledMu.Unlock()
		log.Debug().
			Str("league_id", leagueID.String()).
			Int("pick_index", pickIndex).
			Int("scheduled_index", last).
			Msg("skipping duplicate schedule")
		return
	}
	o.lastScheduled[leagueID] = pickIndex
	o.lastScheduledMu.Unlock()

	o.arm(dueTurn{LeagueID: leagueID, PickIndex: pickIndex}, deadline.Add(o.slack).Sub(o.clock.Now()))
}

// armedTimer pairs a timer with the channel that releases its goroutine when the
// timer is replaced or cancelled before firing.
type armedTimer struct {
	timer clockwork.Timer
	stop  chan struct{}
}

func (a *armedTimer) cancel() {
	a.timer.Stop()
	close(a.stop)
}

// arm replaces the league's timer with one firing after wait. A non-positive wait
// fires at once.
func (o *Orchestrator) arm(turn dueTurn, wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	armed := &armedTimer{timer: o.clock.NewTimer(wait), stop: make(chan struct{})}
	o.replaceTimer(turn.LeagueID, armed)

	go func() {
		select {
		case <-armed.timer.Chan():
			if !o.removeTimer(turn.LeagueID, armed) {
				return
			}
			select {
			case o.workCh <- turn:
				log.Debug().
					Str("league_id", turn.LeagueID.String()).
					Int("pick_index", turn.PickIndex).
					Msg("timer fired - enqueued for auto-pick")
			case <-o.done:
			}
		case <-armed.stop:
		case <-o.done:
		}
	}()

	log.Debug().
		Str("league_id", turn.LeagueID.String()).
		Int("pick_index", turn.PickIndex).
		Dur("wait", wait).
		Msg("armed turn timer")
}

// Cancel stops the league's timer and forgets its schedule, used when a draft
// completes or is reset.
func (o *Orchestrator) Cancel(leagueID uuid.UUID) {
	o.activeTimersMu.Lock()
	if armed, exists := o.activeTimers[leagueID]; exists {
		armed.cancel()
		delete(o.activeTimers, leagueID)
		log.Debug().Str("league_id", leagueID.String()).Msg("cancelled turn timer")
	}
	o.activeTimersMu.Unlock()

	o.lastScheduledMu.Lock()
	delete(o.lastScheduled, leagueID)
	o.lastScheduledMu.Unlock()
}

// replaceTimer stores the league's new timer, cancelling the one it replaces.
func (o *Orchestrator) replaceTimer(leagueID uuid.UUID, armed *armedTimer) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if existing, exists := o.activeTimers[leagueID]; exists {
		existing.cancel()
	}
	o.activeTimers[leagueID] = armed
}

// removeTimer drops the league's timer if it is still armed. It reports false
// when the timer was replaced or cancelled as it fired, in which case the turn
// is stale.
func (o *Orchestrator) removeTimer(leagueID uuid.UUID, armed *armedTimer) bool {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	if o.activeTimers[leagueID] != armed {
		return false
	}
	delete(o.activeTimers, leagueID)
	return true
}
