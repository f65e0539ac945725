// Package catalog holds the static description of available execution tiers
// and the initial tier selection heuristic.
package catalog

import (
	"fmt"
	"sort"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// ErrNoTierSatisfies is returned when no tier in the catalog provides the
// capabilities a request declares.
var ErrNoTierSatisfies = fmt.Errorf("no tier satisfies the required capabilities")

// Catalog is the read-only set of tiers available to the router. It is
// validated at construction and never mutated afterwards, so it needs no
// locking.
type Catalog struct {
	tiers []models.Tier
	byID  map[models.TierID]models.Tier
}

// New validates the tier set and builds a catalog. Tier IDs must be unique,
// ranks must be strictly unique (they totally order the tiers), and costs
// must be non-negative.
func New(tiers []models.Tier) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("catalog requires at least one tier")
	}

	byID := make(map[models.TierID]models.Tier, len(tiers))
	byRank := make(map[int]models.TierID, len(tiers))
	sorted := make([]models.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	for _, tier := range sorted {
		if tier.ID == "" {
			return nil, fmt.Errorf("tier with rank %d has no ID", tier.Rank)
		}
		if _, exists := byID[tier.ID]; exists {
			return nil, fmt.Errorf("duplicate tier ID %q", tier.ID)
		}
		if other, exists := byRank[tier.Rank]; exists {
			return nil, fmt.Errorf("tiers %q and %q share rank %d", other, tier.ID, tier.Rank)
		}
		if tier.EstimatedCostUSD < 0 {
			return nil, fmt.Errorf("tier %q has negative estimated cost", tier.ID)
		}
		byID[tier.ID] = tier
		byRank[tier.Rank] = tier.ID
	}

	return &Catalog{tiers: sorted, byID: byID}, nil
}

// Lookup returns the tier with the given ID.
func (c *Catalog) Lookup(id models.TierID) (models.Tier, bool) {
	tier, ok := c.byID[id]
	return tier, ok
}

// Tiers returns the tiers in ascending rank order. The slice is a copy.
func (c *Catalog) Tiers() []models.Tier {
	out := make([]models.Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Lowest returns the lowest-rank tier.
func (c *Catalog) Lowest() models.Tier {
	return c.tiers[0]
}

// Size returns the number of tiers in the catalog.
func (c *Catalog) Size() int {
	return len(c.tiers)
}

// SelectInitial picks the first candidate tier for a request. A forced tier
// wins regardless of heuristic; otherwise the lowest-rank tier whose
// capability set covers the request's requirements is chosen. A request with
// FreshnessRequired implicitly requires the fresh-web-data capability.
func (c *Catalog) SelectInitial(req *models.Request) (models.Tier, error) {
	if req.ForcedTier != "" {
		tier, ok := c.byID[req.ForcedTier]
		if !ok {
			return models.Tier{}, fmt.Errorf("forced tier %q is not in the catalog", req.ForcedTier)
		}
		return tier, nil
	}

	required := req.RequiredCapabilities
	if req.FreshnessRequired && !hasCapability(required, models.CapabilityFreshWebData) {
		required = append(append([]models.Capability{}, required...), models.CapabilityFreshWebData)
	}

	for _, tier := range c.tiers {
		if tier.Satisfies(required) {
			return tier, nil
		}
	}
	return models.Tier{}, ErrNoTierSatisfies
}

func hasCapability(caps []models.Capability, want models.Capability) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}
