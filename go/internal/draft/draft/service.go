package draft

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/mcdev12/castaway/go/internal/rpc"
	"github.com/rs/zerolog/log"
)

const DraftServiceName = "castaway.draft.v1.DraftService"

const (
	StartDraftProcedure        = "/" + DraftServiceName + "/StartDraft"
	ResetDraftProcedure        = "/" + DraftServiceName + "/ResetDraft"
	GetDraftProcedure          = "/" + DraftServiceName + "/GetDraft"
	SaveDraftSettingsProcedure = "/" + DraftServiceName + "/SaveDraftSettings"
)

type StartDraftRPCRequest struct {
	LeagueID       string                `json:"league_id"`
	Settings       *models.DraftSettings `json:"settings,omitempty"`
	RandomizeOrder bool                  `json:"randomize_order"`
}

type DraftResponse struct {
	Draft *models.Draft `json:"draft"`
}

type LeagueRequest struct {
	LeagueID string `json:"league_id"`
}

type GetDraftResponse struct {
	View *DraftView `json:"view"`
}

type SaveDraftSettingsRPCRequest struct {
	LeagueID string               `json:"league_id"`
	Settings models.DraftSettings `json:"settings"`
}

type SaveDraftSettingsResponse struct {
	Settings *models.DraftSettings `json:"settings"`
}

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	StartDraft(ctx context.Context, req StartDraftRequest) (*models.Draft, error)
	ResetDraft(ctx context.Context, leagueID uuid.UUID, callerID string) (*models.Draft, error)
	GetDraft(ctx context.Context, leagueID uuid.UUID) (*DraftView, error)
	SaveDraftSettings(ctx context.Context, req SaveDraftSettingsRequest) (*models.DraftSettings, error)
}

// Service implements the DraftService RPC interface
type Service struct {
	app DraftApp
}

// NewService creates a new draft service
func NewService(app DraftApp) *Service {
	return &Service{app: app}
}

// Handler returns the path prefix and handler to mount the service under.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StartDraftProcedure, rpc.Unary(StartDraftProcedure, s.StartDraft, opts...))
	mux.Handle(ResetDraftProcedure, rpc.Unary(ResetDraftProcedure, s.ResetDraft, opts...))
	mux.Handle(GetDraftProcedure, rpc.Unary(GetDraftProcedure, s.GetDraft, opts...))
	mux.Handle(SaveDraftSettingsProcedure, rpc.Unary(SaveDraftSettingsProcedure, s.SaveDraftSettings, opts...))
	return "/" + DraftServiceName + "/", mux
}

// StartDraft starts the league's draft
func (s *Service) StartDraft(ctx context.Context, req *connect.Request[StartDraftRPCRequest]) (*connect.Response[DraftResponse], error) {
	caller, leagueID, err := callerAndLeague(ctx, req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}

	d, err := s.app.StartDraft(ctx, StartDraftRequest{
		LeagueID:       leagueID,
		CallerID:       caller,
		Settings:       req.Msg.Settings,
		RandomizeOrder: req.Msg.RandomizeOrder,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DraftResponse{Draft: d}), nil
}

// ResetDraft discards the league's draft
func (s *Service) ResetDraft(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[DraftResponse], error) {
	caller, leagueID, err := callerAndLeague(ctx, req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}

	d, err := s.app.ResetDraft(ctx, leagueID, caller)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DraftResponse{Draft: d}), nil
}

// GetDraft returns the draft record and lobby settings
func (s *Service) GetDraft(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[GetDraftResponse], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}

	view, err := s.app.GetDraft(ctx, leagueID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetDraftResponse{View: view}), nil
}

// SaveDraftSettings stores settings for the next start
func (s *Service) SaveDraftSettings(ctx context.Context, req *connect.Request[SaveDraftSettingsRPCRequest]) (*connect.Response[SaveDraftSettingsResponse], error) {
	caller, leagueID, err := callerAndLeague(ctx, req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}

	settings, err := s.app.SaveDraftSettings(ctx, SaveDraftSettingsRequest{
		LeagueID: leagueID,
		CallerID: caller,
		Settings: req.Msg.Settings,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SaveDraftSettingsResponse{Settings: settings}), nil
}

func callerAndLeague(ctx context.Context, rawLeagueID string) (string, uuid.UUID, error) {
	caller, err := rpc.Caller(ctx)
	if err != nil {
		return "", uuid.Nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	leagueID, err := uuid.Parse(rawLeagueID)
	if err != nil {
		return "", uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}
	return caller, leagueID, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrNotCommissioner):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, ErrInsufficientCandidates),
		errors.Is(err, ErrDraftInProgress),
		errors.Is(err, ErrDraftAlreadyCompleted):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrInvalidTimer), errors.Is(err, ErrInvalidSettings):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, pick.ErrDraftNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, docstore.ErrVersionConflict):
		return connect.NewError(connect.CodeAborted, err)
	default:
		log.Error().Err(err).Msg("unexpected draft lifecycle error")
		return connect.NewError(connect.CodeInternal, err)
	}
}
