package fantasyteam

import (
	"fmt"
	"sort"

	"github.com/mcdev12/castaway/go/internal/models"
)

// Team is a league team with its map key and owner's display name resolved.
type Team struct {
	Name      string   `json:"name"`
	Owner     string   `json:"owner"`
	OwnerName string   `json:"owner_name"`
	Members   []string `json:"members"`
	Motto     string   `json:"motto,omitempty"`
	LogoURL   string   `json:"logo_url,omitempty"`
}

// OwnedBy returns the name of owner's team. Teams are matched by owner only; if an
// owner somehow holds several, the alphabetically first wins.
func OwnedBy(teams map[string]models.FantasyTeam, owner string) (string, bool) {
	var names []string
	for name, t := range teams {
		if t.Owner == owner {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}

// DefaultName is the name given to a drafted team that has none yet.
func DefaultName(displayName string) string {
	return displayName + "'s Team"
}

// FreeName returns base, or base with a numeric suffix when it is already taken.
func FreeName(teams map[string]models.FantasyTeam, base string) string {
	if _, taken := teams[base]; !taken {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s %d", base, i)
		if _, taken := teams[name]; !taken {
			return name
		}
	}
}

// List returns the league's teams sorted by name.
func List(league *models.League) []Team {
	out := make([]Team, 0, len(league.Teams))
	for name, t := range league.Teams {
		out = append(out, Team{
			Name:      name,
			Owner:     t.Owner,
			OwnerName: league.DisplayName(t.Owner),
			Members:   append([]string{}, t.Members...),
			Motto:     t.Motto,
			LogoURL:   t.LogoURL,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
