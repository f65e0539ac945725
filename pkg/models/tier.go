// Package models defines the shared value types for tier routing.
package models

// TierID identifies an execution tier.
type TierID string

const (
	// TierLocal is the offline, no-escalation tier.
	TierLocal TierID = "local"
	// TierResearch is the mid-cost tier with fresh web access.
	TierResearch TierID = "research"
	// TierFrontier is the premium, most capable tier.
	TierFrontier TierID = "frontier"
)

// Valid returns true if the tier ID is a known value.
func (t TierID) Valid() bool {
	switch t {
	case TierLocal, TierResearch, TierFrontier:
		return true
	default:
		return false
	}
}

// Capability is a named ability an execution tier provides.
type Capability string

const (
	// CapabilityFreshWebData indicates the tier can fetch current web content.
	CapabilityFreshWebData Capability = "fresh-web-data"
	// CapabilityLongContext indicates the tier handles very large inputs.
	CapabilityLongContext Capability = "long-context"
	// CapabilityOffline indicates the tier works with no network access.
	CapabilityOffline Capability = "offline"
)

// Tier describes a single execution backend. Tiers are defined at startup
// and never mutated; the catalog hands out copies.
type Tier struct {
	// ID is the tier identifier (local, research, frontier).
	ID TierID
	// Rank orders tiers by capability and cost; higher is more capable.
	// Ranks are strictly unique within a catalog.
	Rank int
	// EstimatedCostUSD is the expected spend for a single dispatch.
	EstimatedCostUSD float64
	// Capabilities lists what this tier can do.
	Capabilities []Capability
	// RequiresApproval marks tiers that must pass the permission gate.
	// The local tier is approval-free; each paid tier declares its own
	// requirement so a mid tier may still need its own approval.
	RequiresApproval bool
}

// HasCapability returns true if the tier provides the given capability.
func (t Tier) HasCapability(c Capability) bool {
	for _, have := range t.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Satisfies returns true if the tier provides every required capability.
func (t Tier) Satisfies(required []Capability) bool {
	for _, c := range required {
		if !t.HasCapability(c) {
			return false
		}
	}
	return true
}
