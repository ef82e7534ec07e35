package gateway

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowSource holds SubscribeDraft until release is closed.
type slowSource struct {
	*docstore.Memory
	release      chan struct{}
	subscribed   atomic.Int32
	unsubscribed atomic.Int32
}

func (s *slowSource) SubscribeDraft(ctx context.Context, leagueID uuid.UUID, onChange func(*models.Draft)) (func(), error) {
	<-s.release
	s.subscribed.Add(1)
	return func() { s.unsubscribed.Add(1) }, nil
}

func TestConnectionManager_SubscribeDoesNotHoldLock(t *testing.T) {
	ctx := context.Background()
	src := &slowSource{Memory: docstore.NewMemory(), release: make(chan struct{})}
	cm := NewConnectionManager(src, clockwork.NewFakeClock(), DefaultConnectionConfig())

	leagueID := uuid.New()
	first := &Connection{ID: "first", LeagueID: leagueID, Send: make(chan []byte, 1), Manager: cm}
	second := &Connection{ID: "second", LeagueID: leagueID, Send: make(chan []byte, 1), Manager: cm}

	errs := make(chan error, 2)
	go func() { errs <- cm.registerConnection(ctx, first) }()
	go func() { errs <- cm.registerConnection(ctx, second) }()

	stats := make(chan ConnectionStats, 1)
	go func() { stats <- cm.GetConnectionStats() }()
	select {
	case s := <-stats:
		assert.Equal(t, 0, s.TotalConnections)
	case <-time.After(time.Second):
		t.Fatal("stats blocked behind a pending subscribe")
	}

	close(src.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	s := cm.GetConnectionStats()
	assert.Equal(t, 2, s.TotalConnections)
	assert.Equal(t, 1, s.ActiveLeagues)
	// a subscription that lost the race is released straight away
	assert.Equal(t, int32(1), src.subscribed.Load()-src.unsubscribed.Load())

	cm.unregisterConnection(first)
	cm.unregisterConnection(second)
	assert.Equal(t, src.subscribed.Load(), src.unsubscribed.Load())
	assert.Equal(t, 0, cm.GetConnectionStats().ActiveLeagues)
}
