package pick

// BuildSnakeOrder lays out rounds of participants, reversing every odd round.
func BuildSnakeOrder(participants []string, rounds int) []string {
	if len(participants) == 0 || rounds <= 0 {
		return nil
	}

	order := make([]string, 0, len(participants)*rounds)
	for r := 0; r < rounds; r++ {
		if r%2 == 0 {
			order = append(order, participants...)
			continue
		}
		for i := len(participants) - 1; i >= 0; i-- {
			order = append(order, participants[i])
		}
	}
	return order
}

// Turn describes whose pick it is.
type Turn struct {
	ParticipantID string `json:"participant_id,omitempty"`
	PickIndex     int    `json:"pick_index"`
	Round         int    `json:"round"`
	PickInRound   int    `json:"pick_in_round"`
	Done          bool   `json:"done"`
}

// ResolveTurn maps a pick index onto the order. Rounds and positions are 1-based.
func ResolveTurn(order []string, idx int) Turn {
	n := distinct(order)
	if idx < 0 || idx >= len(order) || n == 0 {
		return Turn{PickIndex: idx, Done: true}
	}
	return Turn{
		ParticipantID: order[idx],
		PickIndex:     idx,
		Round:         idx/n + 1,
		PickInRound:   idx%n + 1,
	}
}

// Participants returns each participant once, in first-pick order.
func Participants(order []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range order {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func distinct(order []string) int {
	return len(Participants(order))
}
