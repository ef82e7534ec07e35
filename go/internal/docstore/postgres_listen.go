package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const draftChangesChannel = "draft_changes"

type changeListener struct {
	listener *pq.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// StartListening subscribes to the draft_changes channel so writes from any process
// reach local subscribers. dsn must be a lib/pq connection string.
func (p *Postgres) StartListening(ctx context.Context, dsn string) error {
	if p.listener != nil {
		return nil
	}

	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Error().Err(err).Msg("draft change listener error")
		}
	}
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, reportProblem)
	if err := l.Listen(draftChangesChannel); err != nil {
		l.Close()
		return fmt.Errorf("failed to listen on %s: %w", draftChangesChannel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cl := &changeListener{listener: l, cancel: cancel}
	p.listener = cl

	cl.wg.Add(1)
	go func() {
		defer cl.wg.Done()
		p.listen(ctx, l)
	}()

	log.Info().Str("channel", draftChangesChannel).Msg("draft change listener started")
	return nil
}

func (p *Postgres) listen(ctx context.Context, l *pq.Listener) {
	for {
		select {
		case <-ctx.Done():
			return

		case n := <-l.Notify:
			// nil after a reconnect; notifications may have been missed.
			if n == nil {
				p.resyncSubscribers(ctx)
				continue
			}
			leagueID, err := uuid.Parse(n.Extra)
			if err != nil {
				log.Warn().Str("payload", n.Extra).Msg("invalid league id in draft change notification")
				continue
			}
			p.deliver(ctx, leagueID)

		case <-time.After(90 * time.Second):
			go func() {
				if err := l.Ping(); err != nil {
					log.Warn().Err(err).Msg("draft change listener ping failed")
				}
			}()
		}
	}
}

func (p *Postgres) deliver(ctx context.Context, leagueID uuid.UUID) {
	d, err := p.LoadDraft(ctx, leagueID)
	if err != nil {
		log.Error().Err(err).Str("league_id", leagueID.String()).Msg("failed to load changed draft")
		return
	}
	p.hub.publish(d)
}

func (p *Postgres) resyncSubscribers(ctx context.Context) {
	for _, id := range p.hub.leagues() {
		p.deliver(ctx, id)
	}
}

func (cl *changeListener) close() {
	cl.cancel()
	cl.wg.Wait()
	if err := cl.listener.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close draft change listener")
	}
}
