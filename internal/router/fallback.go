// Package router orchestrates tier selection, the permission gate, the
// budget ledger, and dispatch with deterministic fallback.
package router

import (
	"github.com/Jmi2020/KITT-sub006/internal/catalog"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// FallbackPolicy is the deterministic degradation path between tiers. It
// only ever moves to a strictly lower rank than anything already attempted,
// and a maximum depth bounds the number of attempts so the router can never
// loop.
type FallbackPolicy struct {
	catalog  *catalog.Catalog
	maxDepth int
}

// NewFallbackPolicy creates a policy over the given catalog. A maxDepth of
// zero or less defaults to the catalog size.
func NewFallbackPolicy(cat *catalog.Catalog, maxDepth int) *FallbackPolicy {
	if maxDepth <= 0 || maxDepth > cat.Size() {
		maxDepth = cat.Size()
	}
	return &FallbackPolicy{catalog: cat, maxDepth: maxDepth}
}

// MaxDepth returns the maximum number of attempts the policy permits.
func (p *FallbackPolicy) MaxDepth() int {
	return p.maxDepth
}

// Next returns the next tier to try after the given attempts: the
// highest-rank tier strictly below every rank already attempted. The second
// return is false when fallback is exhausted, either because the depth
// bound is reached or no lower tier remains.
func (p *FallbackPolicy) Next(attempted []models.TierID) (models.Tier, bool) {
	if len(attempted) >= p.maxDepth {
		return models.Tier{}, false
	}

	floor := -1
	tried := make(map[models.TierID]bool, len(attempted))
	for _, id := range attempted {
		tried[id] = true
		if tier, ok := p.catalog.Lookup(id); ok {
			if floor == -1 || tier.Rank < floor {
				floor = tier.Rank
			}
		}
	}

	tiers := p.catalog.Tiers()
	for i := len(tiers) - 1; i >= 0; i-- {
		tier := tiers[i]
		if tried[tier.ID] {
			continue
		}
		if floor != -1 && tier.Rank >= floor {
			continue
		}
		return tier, true
	}
	return models.Tier{}, false
}
