package fantasyteam

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnedBy(t *testing.T) {
	teams := map[string]models.FantasyTeam{
		"Zeta":  {Owner: "A"},
		"Alpha": {Owner: "A"},
		"Beta":  {Owner: "B"},
	}
	name, ok := OwnedBy(teams, "A")
	assert.True(t, ok)
	assert.Equal(t, "Alpha", name)

	_, ok = OwnedBy(teams, "C")
	assert.False(t, ok)
}

func TestFreeName(t *testing.T) {
	teams := map[string]models.FantasyTeam{
		"Ann's Team":   {Owner: "X"},
		"Ann's Team 2": {Owner: "Y"},
	}
	assert.Equal(t, "Ann's Team 3", FreeName(teams, DefaultName("Ann")))
	assert.Equal(t, "Ben's Team", FreeName(teams, DefaultName("Ben")))
}

func TestApp(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	league := &models.League{
		ID:      uuid.New(),
		Members: []models.Member{{ID: "A", DisplayName: "Ann"}},
		Teams: map[string]models.FantasyTeam{
			"Torches": {Owner: "A", Members: []string{"w"}, Motto: "Outlast"},
			"Buffs":   {Owner: "B", Members: []string{"x"}},
		},
	}
	require.NoError(t, store.SaveLeague(ctx, league))
	app := NewApp(store)

	teams, err := app.ListTeams(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "Buffs", teams[0].Name)
	assert.Equal(t, "B", teams[0].OwnerName)
	assert.Equal(t, Team{Name: "Torches", Owner: "A", OwnerName: "Ann", Members: []string{"w"}, Motto: "Outlast"}, teams[1])

	team, err := app.GetTeamByOwner(ctx, league.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, "Torches", team.Name)

	_, err = app.GetTeamByOwner(ctx, league.ID, "C")
	assert.ErrorIs(t, err, ErrNoTeam)

	_, err = app.ListTeams(ctx, uuid.New())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}
