package pick

import (
	"testing"

	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
)

func draftWithPicks(order []string, picks ...[2]string) *models.Draft {
	d := activeDraft(order...)
	for i, p := range picks {
		d.Picks = append(d.Picks, models.DraftPick{ParticipantID: p[0], Candidate: p[1], PickNumber: i})
	}
	d.CurrentPickIndex = len(d.Picks)
	return d
}

func TestFinalizeRoster(t *testing.T) {
	t.Run("creates teams from display names", func(t *testing.T) {
		league := &models.League{
			Members: []models.Member{{ID: "A", DisplayName: "Alice"}, {ID: "B"}},
		}
		d := draftWithPicks([]string{"A", "B", "B", "A"}, [2]string{"A", "w"}, [2]string{"B", "x"}, [2]string{"B", "y"}, [2]string{"A", "z"})

		rosters := FinalizeRoster(league, d)

		assert.Equal(t, map[string][]string{"A": {"w", "z"}, "B": {"x", "y"}}, rosters)
		assert.Equal(t, models.FantasyTeam{Owner: "A", Members: []string{"w", "z"}}, league.Teams["Alice's Team"])
		// no display name falls back to the participant ID
		assert.Equal(t, models.FantasyTeam{Owner: "B", Members: []string{"x", "y"}}, league.Teams["B's Team"])
	})

	t.Run("owned team keeps name and metadata", func(t *testing.T) {
		league := &models.League{
			Members: []models.Member{{ID: "A", DisplayName: "Alice"}, {ID: "B", DisplayName: "Bob"}},
			Teams: map[string]models.FantasyTeam{
				"Torch Snuffers": {Owner: "A", Members: []string{"old"}, Motto: "Outwit", LogoURL: "https://example.com/t.png"},
				"Bob's Team":     {Owner: "C", Members: []string{"q"}},
			},
		}
		d := draftWithPicks([]string{"A", "B"}, [2]string{"A", "w"}, [2]string{"B", "x"})

		FinalizeRoster(league, d)

		assert.Equal(t, models.FantasyTeam{Owner: "A", Members: []string{"w"}, Motto: "Outwit", LogoURL: "https://example.com/t.png"}, league.Teams["Torch Snuffers"])
		assert.NotContains(t, league.Teams, "Alice's Team")

		// matched by owner, never by name: C keeps "Bob's Team"
		assert.Equal(t, "C", league.Teams["Bob's Team"].Owner)
		assert.Equal(t, models.FantasyTeam{Owner: "B", Members: []string{"x"}}, league.Teams["Bob's Team 2"])
		assert.Len(t, league.Teams, 3)
	})
}
