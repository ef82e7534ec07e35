package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/castaway/go/internal/catalog"
	"github.com/mcdev12/castaway/go/internal/config"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/leagues"
	"github.com/mcdev12/castaway/go/internal/models"
)

// leagueFile mirrors config/league.yaml
type leagueFile struct {
	Name           string `yaml:"name"`
	CommissionerID string `yaml:"commissioner_id"`
	Members        []struct {
		ID          string `yaml:"id"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"members"`
}

func main() {
	path := "config/league.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the league and cast files
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read league file: %v\n", err)
		os.Exit(1)
	}
	var lf leagueFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal league file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	season, err := catalog.LoadFile(cfg.CastFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load cast: %v\n", err)
		os.Exit(1)
	}

	// 2) Open the configured store
	ctx := context.Background()
	store, err := docstore.Open(ctx, docstore.OpenConfig{
		Driver:     cfg.DocstoreDriver,
		SQLitePath: cfg.SQLitePath,
		DB:         cfg.DB,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 3) Create the league
	req := leagues.CreateLeagueRequest{
		Name:           lf.Name,
		Season:         season.Season,
		CommissionerID: lf.CommissionerID,
		Contestants:    season.Contestants,
	}
	for _, m := range lf.Members {
		req.Members = append(req.Members, models.Member{ID: m.ID, DisplayName: m.DisplayName})
	}

	league, err := leagues.NewApp(store, clockwork.NewRealClock()).CreateLeague(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create league: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary
	fmt.Printf(
		"League seed complete: %s (%s), %d members, %d contestants\n",
		league.Name, league.ID, len(league.Members), len(league.Contestants),
	)
}
