package main

import (
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/draft"
	"github.com/mcdev12/castaway/go/internal/draft/gateway"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/fantasyteam"
	"github.com/mcdev12/castaway/go/internal/leagues"
)

type Services struct {
	League    *leagues.Service
	Draft     *draft.Service
	DraftPick *pick.Service
	Gateway   *gateway.Service

	// PickApp resolves expired turns for the embedded watcher.
	PickApp *pick.App
}

func setupServices(store docstore.Store, clock clockwork.Clock) *Services {
	// Store → App layer → Service layer

	leagueApp := leagues.NewApp(store, clock)
	teamsApp := fantasyteam.NewApp(store)

	draftApp := draft.NewApp(store, clock)
	pickApp := pick.NewApp(store, clock, pick.NewRandomStrategy())

	return &Services{
		League:    leagues.NewService(leagueApp, teamsApp),
		Draft:     draft.NewService(draftApp),
		DraftPick: pick.NewService(pickApp),
		Gateway:   gateway.NewService(gateway.DefaultConfig(), store, clock),
		PickApp:   pickApp,
	}
}
