package catalog

import (
	"testing"

	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	s, err := LoadFile("testdata/cast.yaml")
	require.NoError(t, err)
	assert.Equal(t, "47", s.Season)
	require.Len(t, s.Contestants, 4)
	assert.Equal(t, models.Contestant{Name: "Rachel", Tribe: "Gata", Age: 34, Hometown: "Southgate, Michigan"}, s.Contestants[0])

	_, err = LoadFile("testdata/duplicate.yaml")
	assert.ErrorContains(t, err, "duplicate contestant")

	_, err = LoadFile("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	league := &models.League{
		Contestants: []models.Contestant{{Name: "w"}, {Name: "x"}, {Name: "y"}, {Name: "z"}, {Name: "q"}},
		Teams: map[string]models.FantasyTeam{
			"Old Team":  {Owner: "A", Members: []string{"x"}},
			"Sideliner": {Owner: "C", Members: []string{"q"}},
		},
	}

	c := New(league, []string{"A", "B"})

	// A is drafting again so x returns to the pool; C sits out so q is excluded.
	assert.Equal(t, []string{"w", "x", "y", "z"}, c.Names())
	assert.Equal(t, 4, c.Count())
	assert.True(t, c.Known("x"))
	assert.False(t, c.Known("q"))
	assert.False(t, c.Known("nobody"))
}

func TestAvailable(t *testing.T) {
	league := &models.League{
		Contestants: []models.Contestant{{Name: "w"}, {Name: "x"}, {Name: "y"}, {Name: "z"}},
	}
	c := New(league, []string{"A", "B"})

	picks := []models.DraftPick{
		{ParticipantID: "A", Candidate: "y"},
		{ParticipantID: "B", Candidate: "w"},
	}
	assert.Equal(t, []string{"x", "z"}, c.Available(picks))
	assert.Equal(t, []string{"w", "x", "y", "z"}, c.Available(nil))
}
