package router

import (
	"context"
	"fmt"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// DispatchResult is what a tier client reports for a successful call.
type DispatchResult struct {
	// Payload is the opaque response content.
	Payload string
	// ActualCostUSD is the metered cost of the call, which may differ from
	// the tier's estimate. The ledger commit uses this value.
	ActualCostUSD float64
}

// TierClient performs the actual call to one tier's backing service. The
// client owns its per-call timeout; the router treats a timeout there like
// any other dispatch failure.
type TierClient interface {
	Dispatch(ctx context.Context, req *models.Request, tier models.Tier) (*DispatchResult, error)
}

// Registry looks up tier clients by tier identifier.
type Registry struct {
	clients map[models.TierID]TierClient
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[models.TierID]TierClient)}
}

// Register binds a client to a tier ID, replacing any previous binding.
func (r *Registry) Register(id models.TierID, client TierClient) {
	r.clients[id] = client
}

// Lookup returns the client for a tier.
func (r *Registry) Lookup(id models.TierID) (TierClient, error) {
	client, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("no client registered for tier %q", id)
	}
	return client, nil
}
