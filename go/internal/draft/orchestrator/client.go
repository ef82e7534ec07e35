package orchestrator

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/castaway/go/internal/draft/pick"
	"github.com/mcdev12/castaway/go/internal/rpc"
)

// PickClient expires turns through the pick service's ExpireTurn RPC, for a
// watcher running in its own process.
type PickClient struct {
	expire *connect.Client[pick.ExpireTurnRequest, pick.ExpireTurnResponse]
}

func NewPickClient(httpClient *http.Client, baseURL string) *PickClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &PickClient{
		expire: connect.NewClient[pick.ExpireTurnRequest, pick.ExpireTurnResponse](
			httpClient, baseURL+pick.ExpireTurnProcedure, rpc.ClientOptions()...,
		),
	}
}

// AutoPick returns the pick service's sentinel errors unwrapped from the RPC status.
func (c *PickClient) AutoPick(ctx context.Context, leagueID uuid.UUID, pickIndex int) (*pick.PickResult, error) {
	res, err := c.expire.CallUnary(ctx, connect.NewRequest(&pick.ExpireTurnRequest{
		LeagueID:  leagueID.String(),
		PickIndex: pickIndex,
	}))
	if err != nil {
		return nil, pick.FromConnectError(err)
	}
	return &pick.PickResult{Pick: res.Msg.Pick, Completed: res.Msg.Completed}, nil
}
