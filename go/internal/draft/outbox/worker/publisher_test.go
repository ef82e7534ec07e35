package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJetStreamConfig_Subject(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	assert.Equal(t, "draft.events.PickMade", cfg.Subject(events.TypePickMade))
	assert.Equal(t, "draft.events.DraftReset", cfg.Subject(events.TypeDraftReset))

	sc := cfg.streamConfig()
	assert.Equal(t, "DRAFT_EVENTS", sc.Name)
	assert.Equal(t, []string{"draft.events.>"}, sc.Subjects)
	assert.Equal(t, 2*time.Hour, sc.Duplicates)
}

func TestJetStreamConfig_Message(t *testing.T) {
	leagueID := uuid.New()
	madeAt := time.Date(2025, 3, 1, 20, 1, 0, 0, time.UTC)
	event, err := events.New(leagueID, events.TypePickMade, events.PickMadePayload{
		LeagueID:      leagueID.String(),
		ParticipantID: "A",
		Candidate:     "Rachel",
		PickNumber:    1,
		MadeAt:        madeAt,
		NextPickIndex: 1,
	}, madeAt)
	require.NoError(t, err)

	sentAt := madeAt.Add(time.Second)
	msg, err := DefaultJetStreamConfig().message(event, sentAt)
	require.NoError(t, err)

	assert.Equal(t, "draft.events.PickMade", msg.Subject)
	assert.Equal(t, events.TypePickMade, msg.Header.Get(HeaderEventType))
	assert.Equal(t, leagueID.String(), msg.Header.Get(HeaderLeagueID))
	assert.Equal(t, event.ID.String(), msg.Header.Get(HeaderEventID))

	var env events.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, event.ID.String(), env.EventID)
	assert.Equal(t, leagueID.String(), env.LeagueID)
	assert.True(t, sentAt.Equal(env.Timestamp))

	var payload events.PickMadePayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "Rachel", payload.Candidate)
	assert.Equal(t, 1, payload.NextPickIndex)
}

func TestStreamNeedsUpdate(t *testing.T) {
	want := DefaultJetStreamConfig().streamConfig()
	assert.False(t, streamNeedsUpdate(want, want))

	shorter := want
	shorter.Duplicates = time.Minute
	assert.True(t, streamNeedsUpdate(shorter, want))

	var empty jetstream.StreamConfig
	assert.True(t, streamNeedsUpdate(empty, want))
}
