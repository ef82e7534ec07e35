package pick

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSnakeOrder(t *testing.T) {
	tests := []struct {
		name         string
		participants []string
		rounds       int
		want         []string
	}{
		{name: "three by two", participants: []string{"A", "B", "C"}, rounds: 2, want: []string{"A", "B", "C", "C", "B", "A"}},
		{name: "two by two", participants: []string{"A", "B"}, rounds: 2, want: []string{"A", "B", "B", "A"}},
		{name: "odd rounds", participants: []string{"A", "B"}, rounds: 3, want: []string{"A", "B", "B", "A", "A", "B"}},
		{name: "single participant", participants: []string{"A"}, rounds: 3, want: []string{"A", "A", "A"}},
		{name: "no participants", participants: nil, rounds: 3, want: nil},
		{name: "no rounds", participants: []string{"A"}, rounds: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSnakeOrder(tt.participants, tt.rounds))
		})
	}
}

func TestBuildSnakeOrder_Properties(t *testing.T) {
	participants := []string{"p1", "p2", "p3", "p4", "p5"}
	for rounds := 1; rounds <= 6; rounds++ {
		order := BuildSnakeOrder(participants, rounds)
		assert.Len(t, order, len(participants)*rounds)

		counts := map[string]int{}
		for _, p := range order {
			counts[p]++
		}
		for _, p := range participants {
			assert.Equal(t, rounds, counts[p])
		}

		// every round is a permutation, forward on even rounds and reversed on odd
		for r := 0; r < rounds; r++ {
			slice := order[r*len(participants) : (r+1)*len(participants)]
			for i, p := range slice {
				if r%2 == 0 {
					assert.Equal(t, participants[i], p)
				} else {
					assert.Equal(t, participants[len(participants)-1-i], p)
				}
			}
		}
	}
}

func TestResolveTurn(t *testing.T) {
	order := BuildSnakeOrder([]string{"A", "B", "C"}, 2)

	assert.Equal(t, Turn{ParticipantID: "A", PickIndex: 0, Round: 1, PickInRound: 1}, ResolveTurn(order, 0))
	assert.Equal(t, Turn{ParticipantID: "C", PickIndex: 2, Round: 1, PickInRound: 3}, ResolveTurn(order, 2))
	assert.Equal(t, Turn{ParticipantID: "C", PickIndex: 3, Round: 2, PickInRound: 1}, ResolveTurn(order, 3))
	assert.Equal(t, Turn{ParticipantID: "A", PickIndex: 5, Round: 2, PickInRound: 3}, ResolveTurn(order, 5))

	done := ResolveTurn(order, 6)
	assert.True(t, done.Done)
	assert.Empty(t, done.ParticipantID)

	assert.True(t, ResolveTurn(nil, 0).Done)
}

func TestParticipants(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Participants([]string{"A", "B", "B", "A"}))
	assert.Nil(t, Participants(nil))
}
