// Package catalog is the read-only set of draftable contestants for a league.
package catalog

import (
	"fmt"
	"os"

	"github.com/mcdev12/castaway/go/internal/models"
	"gopkg.in/yaml.v3"
)

// Season is a cast seed file.
type Season struct {
	Season      string              `yaml:"season"`
	Contestants []models.Contestant `yaml:"contestants"`
}

// LoadFile reads a YAML season cast file.
func LoadFile(path string) (*Season, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cast file: %w", err)
	}

	var s Season
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse cast file: %w", err)
	}

	seen := make(map[string]bool, len(s.Contestants))
	for i, c := range s.Contestants {
		if c.Name == "" {
			return nil, fmt.Errorf("contestant %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate contestant %q", c.Name)
		}
		seen[c.Name] = true
	}
	return &s, nil
}

// Catalog holds the candidates a draft may choose from, in cast order.
type Catalog struct {
	names []string
	index map[string]struct{}
}

// New builds the catalog for a draft among participants. Contestants already on a
// team owned by someone outside the draft are excluded.
func New(league *models.League, participants []string) *Catalog {
	inDraft := make(map[string]bool, len(participants))
	for _, p := range participants {
		inDraft[p] = true
	}

	excluded := make(map[string]bool)
	for _, team := range league.Teams {
		if inDraft[team.Owner] {
			continue
		}
		for _, m := range team.Members {
			excluded[m] = true
		}
	}

	c := &Catalog{index: make(map[string]struct{}, len(league.Contestants))}
	for _, contestant := range league.Contestants {
		if excluded[contestant.Name] {
			continue
		}
		if _, dup := c.index[contestant.Name]; dup {
			continue
		}
		c.index[contestant.Name] = struct{}{}
		c.names = append(c.names, contestant.Name)
	}
	return c
}

// Known reports whether name is a draftable candidate.
func (c *Catalog) Known(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Count returns the number of draftable candidates.
func (c *Catalog) Count() int {
	return len(c.names)
}

// Names returns every candidate in cast order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Available returns candidates not yet taken by picks, in cast order.
func (c *Catalog) Available(picks []models.DraftPick) []string {
	taken := make(map[string]bool, len(picks))
	for _, p := range picks {
		taken[p.Candidate] = true
	}
	out := make([]string, 0, len(c.names))
	for _, n := range c.names {
		if !taken[n] {
			out = append(out, n)
		}
	}
	return out
}
