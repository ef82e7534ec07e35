package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// worker resolves expired turns from the work channel.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Debug().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case turn := <-o.workCh:
			if err := o.handleTimeout(ctx, turn); err != nil {
				log.Error().
					Err(err).
					Str("league_id", turn.LeagueID.String()).
					Int("pick_index", turn.PickIndex).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker timeout handling failed")
			}
		}
	}
}
