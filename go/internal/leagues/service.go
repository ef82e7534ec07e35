package leagues

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/fantasyteam"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/mcdev12/castaway/go/internal/rpc"
)

const LeagueServiceName = "castaway.league.v1.LeagueService"

const (
	GetLeagueProcedure = "/" + LeagueServiceName + "/GetLeague"
	ListTeamsProcedure = "/" + LeagueServiceName + "/ListTeams"
	GetTeamProcedure   = "/" + LeagueServiceName + "/GetTeam"
)

type LeagueRequest struct {
	LeagueID string `json:"league_id"`
}

type GetLeagueResponse struct {
	League *models.League `json:"league"`
}

type ListTeamsResponse struct {
	Teams []fantasyteam.Team `json:"teams"`
}

// GetTeamRequest looks up a team by owner. An empty owner means the caller.
type GetTeamRequest struct {
	LeagueID string `json:"league_id"`
	OwnerID  string `json:"owner_id,omitempty"`
}

type GetTeamResponse struct {
	Team *fantasyteam.Team `json:"team"`
}

// LeaguesApp defines what the service layer needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
}

// TeamsApp defines what the service layer needs from the fantasy teams application
type TeamsApp interface {
	ListTeams(ctx context.Context, leagueID uuid.UUID) ([]fantasyteam.Team, error)
	GetTeamByOwner(ctx context.Context, leagueID uuid.UUID, owner string) (*fantasyteam.Team, error)
}

// Service implements the LeagueService RPC interface
type Service struct {
	app   LeaguesApp
	teams TeamsApp
}

// NewService creates a new leagues service
func NewService(app LeaguesApp, teams TeamsApp) *Service {
	return &Service{
		app:   app,
		teams: teams,
	}
}

// Handler returns the path prefix and handler to mount the service under.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetLeagueProcedure, rpc.Unary(GetLeagueProcedure, s.GetLeague, opts...))
	mux.Handle(ListTeamsProcedure, rpc.Unary(ListTeamsProcedure, s.ListTeams, opts...))
	mux.Handle(GetTeamProcedure, rpc.Unary(GetTeamProcedure, s.GetTeam, opts...))
	return "/" + LeagueServiceName + "/", mux
}

// GetLeague retrieves a league by ID
func (s *Service) GetLeague(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[GetLeagueResponse], error) {
	id, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}

	league, err := s.app.GetLeague(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return connect.NewResponse(&GetLeagueResponse{League: league}), nil
}

// ListTeams lists the league's teams and rosters
func (s *Service) ListTeams(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[ListTeamsResponse], error) {
	id, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}

	teams, err := s.teams.ListTeams(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	return connect.NewResponse(&ListTeamsResponse{Teams: teams}), nil
}

// GetTeam returns one owner's team, defaulting to the caller's own
func (s *Service) GetTeam(ctx context.Context, req *connect.Request[GetTeamRequest]) (*connect.Response[GetTeamResponse], error) {
	id, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}

	owner := req.Msg.OwnerID
	if owner == "" {
		if owner, err = rpc.Caller(ctx); err != nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
	}

	team, err := s.teams.GetTeamByOwner(ctx, id, owner)
	if err != nil {
		return nil, lookupError(err)
	}
	return connect.NewResponse(&GetTeamResponse{Team: team}), nil
}

func lookupError(err error) error {
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, fantasyteam.ErrNoTeam) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
