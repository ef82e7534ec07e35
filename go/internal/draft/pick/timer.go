package pick

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mcdev12/castaway/go/internal/models"
)

// TimeRemaining returns whole seconds left on the current pick. ok is false for
// async drafts and drafts that are not active.
func TimeRemaining(d *models.Draft, now time.Time) (remaining int, ok bool) {
	if d == nil || d.Status != models.DraftStatusActive || !d.IsTimed() || d.IsComplete() {
		return 0, false
	}
	elapsed := int(now.Sub(d.LastPickAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining = d.TimerSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Expired reports whether the current pick's countdown has run out.
func Expired(d *models.Draft, now time.Time) bool {
	deadline := d.Deadline()
	return deadline != nil && !now.Before(*deadline)
}

// Strategy chooses the candidate for an expired turn.
type Strategy interface {
	Choose(available []string) string
}

// RandomStrategy picks uniformly at random.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy constructs a RandomStrategy with its own seed.
func NewRandomStrategy() *RandomStrategy {
	return NewSeededStrategy(time.Now().UnixNano())
}

// NewSeededStrategy is NewRandomStrategy with a fixed seed, for reproducible tests.
func NewSeededStrategy(seed int64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomStrategy) Choose(available []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return available[s.rng.Intn(len(available))]
}
