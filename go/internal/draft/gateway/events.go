package gateway

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/castaway/go/internal/draft/pick"
)

// DraftEvent is the envelope for every message sent to websocket clients.
type DraftEvent struct {
	Type      EventType       `json:"type"`
	LeagueID  string          `json:"league_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of draft event
type EventType string

const (
	// EventTypeDraftSnapshot carries the full board after every committed change
	// and on connect.
	EventTypeDraftSnapshot EventType = "DraftSnapshot"
	EventTypeTimerTick     EventType = "TimerTick"
)

// TimerTickPayload contains the countdown for the pick on the clock.
type TimerTickPayload struct {
	PickIndex     int        `json:"pick_index"`
	ParticipantID string     `json:"participant_id"`
	Remaining     int        `json:"remaining"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}

func newEvent(eventType EventType, leagueID string, at time.Time, payload any) (*DraftEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &DraftEvent{Type: eventType, LeagueID: leagueID, Timestamp: at, Data: data}, nil
}

// ParseSnapshot decodes a DraftSnapshot event's board.
func ParseSnapshot(event *DraftEvent) (*pick.Board, error) {
	var board pick.Board
	if err := json.Unmarshal(event.Data, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// ParseTimerTick decodes a TimerTick event.
func ParseTimerTick(event *DraftEvent) (*TimerTickPayload, error) {
	var tick TimerTickPayload
	if err := json.Unmarshal(event.Data, &tick); err != nil {
		return nil, err
	}
	return &tick, nil
}
