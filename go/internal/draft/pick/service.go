package pick

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/docstore"
	"github.com/mcdev12/castaway/go/internal/models"
	"github.com/mcdev12/castaway/go/internal/rpc"
	"github.com/rs/zerolog/log"
)

const DraftPickServiceName = "castaway.draft.v1.DraftPickService"

const (
	MakePickProcedure                = "/" + DraftPickServiceName + "/MakePick"
	ExpireTurnProcedure              = "/" + DraftPickServiceName + "/ExpireTurn"
	ListAvailableCandidatesProcedure = "/" + DraftPickServiceName + "/ListAvailableCandidates"
	GetBoardProcedure                = "/" + DraftPickServiceName + "/GetBoard"
)

type MakePickRPCRequest struct {
	LeagueID  string `json:"league_id"`
	Candidate string `json:"candidate"`
}

type MakePickRPCResponse struct {
	Pick      models.DraftPick `json:"pick"`
	NextTurn  Turn             `json:"next_turn"`
	Completed bool             `json:"completed"`
}

type ExpireTurnRequest struct {
	LeagueID  string `json:"league_id"`
	PickIndex int    `json:"pick_index"`
}

type ExpireTurnResponse struct {
	Pick      models.DraftPick `json:"pick"`
	Completed bool             `json:"completed"`
}

type LeagueRequest struct {
	LeagueID string `json:"league_id"`
}

type ListAvailableCandidatesResponse struct {
	Candidates []string `json:"candidates"`
}

type GetBoardResponse struct {
	Board *Board `json:"board"`
}

// PickApp defines what the service layer needs from the pick application
type PickApp interface {
	MakePick(ctx context.Context, req MakePickRequest) (*PickResult, error)
	AutoPick(ctx context.Context, leagueID uuid.UUID, pickIndex int) (*PickResult, error)
	GetBoard(ctx context.Context, leagueID uuid.UUID) (*Board, error)
	ListAvailableCandidates(ctx context.Context, leagueID uuid.UUID) ([]string, error)
}

// Service implements the DraftPickService RPC interface
type Service struct {
	app PickApp
}

// NewService creates a new draft pick service
func NewService(app PickApp) *Service {
	return &Service{app: app}
}

// Handler returns the path prefix and handler to mount the service under.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(MakePickProcedure, rpc.Unary(MakePickProcedure, s.MakePick, opts...))
	mux.Handle(ExpireTurnProcedure, rpc.Unary(ExpireTurnProcedure, s.ExpireTurn, opts...))
	mux.Handle(ListAvailableCandidatesProcedure, rpc.Unary(ListAvailableCandidatesProcedure, s.ListAvailableCandidates, opts...))
	mux.Handle(GetBoardProcedure, rpc.Unary(GetBoardProcedure, s.GetBoard, opts...))
	return "/" + DraftPickServiceName + "/", mux
}

// MakePick records a pick for the calling participant
func (s *Service) MakePick(ctx context.Context, req *connect.Request[MakePickRPCRequest]) (*connect.Response[MakePickRPCResponse], error) {
	caller, err := rpc.Caller(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}
	if strings.TrimSpace(req.Msg.Candidate) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("candidate is required"))
	}

	res, err := s.app.MakePick(ctx, MakePickRequest{
		LeagueID:      leagueID,
		ParticipantID: caller,
		Candidate:     req.Msg.Candidate,
	})
	if err != nil {
		return nil, ToConnectError(err)
	}

	return connect.NewResponse(&MakePickRPCResponse{
		Pick:      res.Pick,
		NextTurn:  ResolveTurn(res.Draft.Order, res.Draft.CurrentPickIndex),
		Completed: res.Completed,
	}), nil
}

// ExpireTurn auto-picks for a timed-out turn. Any client may call it; requests for
// a turn that has not expired or was already filled are rejected.
func (s *Service) ExpireTurn(ctx context.Context, req *connect.Request[ExpireTurnRequest]) (*connect.Response[ExpireTurnResponse], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}
	if req.Msg.PickIndex < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("pick index must not be negative"))
	}

	res, err := s.app.AutoPick(ctx, leagueID, req.Msg.PickIndex)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&ExpireTurnResponse{
		Pick:      res.Pick,
		Completed: res.Completed,
	}), nil
}

// ListAvailableCandidates lists contestants not yet drafted
func (s *Service) ListAvailableCandidates(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[ListAvailableCandidatesResponse], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}

	candidates, err := s.app.ListAvailableCandidates(ctx, leagueID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&ListAvailableCandidatesResponse{Candidates: candidates}), nil
}

// GetBoard returns the draft board
func (s *Service) GetBoard(ctx context.Context, req *connect.Request[LeagueRequest]) (*connect.Response[GetBoardResponse], error) {
	leagueID, err := uuid.Parse(req.Msg.LeagueID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid league id: %w", err))
	}

	board, err := s.app.GetBoard(ctx, leagueID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&GetBoardResponse{Board: board}), nil
}

var errorCodes = []struct {
	err  error
	code connect.Code
}{
	{ErrNotYourTurn, connect.CodeFailedPrecondition},
	{ErrDraftNotActive, connect.CodeFailedPrecondition},
	{ErrCandidateAlreadyTaken, connect.CodeAlreadyExists},
	{ErrUnknownCandidate, connect.CodeInvalidArgument},
	{ErrPickAlreadyResolved, connect.CodeAlreadyExists},
	{ErrTurnNotExpired, connect.CodeFailedPrecondition},
	{ErrUntimedDraft, connect.CodeFailedPrecondition},
	{ErrNoCandidates, connect.CodeFailedPrecondition},
	{ErrDraftNotFound, connect.CodeNotFound},
	{docstore.ErrNotFound, connect.CodeNotFound},
	{docstore.ErrVersionConflict, connect.CodeAborted},
	{rpc.ErrUnauthenticated, connect.CodeUnauthenticated},
}

// ToConnectError maps pick errors onto connect codes. The message keeps the
// sentinel text so FromConnectError can restore it on the client side.
func ToConnectError(err error) error {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return connect.NewError(ec.code, err)
		}
	}
	log.Error().Err(err).Msg("unexpected draft pick error")
	return connect.NewError(connect.CodeInternal, err)
}

// FromConnectError restores the pick sentinel carried by a connect error.
func FromConnectError(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}
	for _, ec := range errorCodes {
		if cerr.Code() == ec.code && strings.Contains(cerr.Message(), ec.err.Error()) {
			return fmt.Errorf("%w: %s", ec.err, cerr.Message())
		}
	}
	return err
}
