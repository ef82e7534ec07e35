package docstore

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/rs/zerolog/log"
)

// hub fans committed drafts out to per-league subscribers.
type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[uuid.UUID]map[int]func(*models.Draft)
}

func newHub() *hub {
	return &hub{subs: make(map[uuid.UUID]map[int]func(*models.Draft))}
}

func (h *hub) add(leagueID uuid.UUID, fn func(*models.Draft)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[leagueID] == nil {
		h.subs[leagueID] = make(map[int]func(*models.Draft))
	}
	h.subs[leagueID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[leagueID], id)
			if len(h.subs[leagueID]) == 0 {
				delete(h.subs, leagueID)
			}
		})
	}
}

func (h *hub) leagues() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	return ids
}

// publish invokes subscribers outside the lock, each with its own copy.
func (h *hub) publish(draft *models.Draft) {
	if draft == nil {
		return
	}
	h.mu.RLock()
	fns := make([]func(*models.Draft), 0, len(h.subs[draft.LeagueID]))
	for _, fn := range h.subs[draft.LeagueID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(draft.Clone())
	}
	if len(fns) > 0 {
		log.Debug().
			Str("league_id", draft.LeagueID.String()).
			Int64("version", draft.Version).
			Int("subscribers", len(fns)).
			Msg("draft change delivered")
	}
}

// notify performs a non-blocking send of an outbox event ID.
func notify(ch chan uuid.UUID, evts []models.OutboxEvent) {
	for _, e := range evts {
		select {
		case ch <- e.ID:
		default:
			log.Warn().Str("event_id", e.ID.String()).Msg("outbox notification channel full, relying on fallback poll")
		}
	}
}
