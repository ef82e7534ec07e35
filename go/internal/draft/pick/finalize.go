package pick

import (
	"github.com/mcdev12/castaway/go/internal/fantasyteam"
	"github.com/mcdev12/castaway/go/internal/models"
)

// FinalizeRoster writes the draft's picks onto the league's teams and returns the
// rosters by participant. A participant's existing team keeps its name, motto and
// logo; participants without a team get "<display name>'s Team".
func FinalizeRoster(league *models.League, d *models.Draft) map[string][]string {
	rosters := make(map[string][]string)
	for _, p := range d.Picks {
		rosters[p.ParticipantID] = append(rosters[p.ParticipantID], p.Candidate)
	}

	if league.Teams == nil {
		league.Teams = make(map[string]models.FantasyTeam)
	}

	for _, participant := range Participants(d.Order) {
		members := append([]string{}, rosters[participant]...)

		if name, ok := fantasyteam.OwnedBy(league.Teams, participant); ok {
			team := league.Teams[name]
			team.Members = members
			league.Teams[name] = team
			continue
		}

		name := fantasyteam.FreeName(league.Teams, fantasyteam.DefaultName(league.DisplayName(participant)))
		league.Teams[name] = models.FantasyTeam{
			Owner:   participant,
			Members: members,
		}
	}
	return rosters
}
