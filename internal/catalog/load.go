package catalog

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// tierFile is the YAML shape of a catalog definition file.
type tierFile struct {
	Tiers []tierSpec `yaml:"tiers"`
}

// tierSpec is a single tier entry in the catalog file.
type tierSpec struct {
	ID               string   `yaml:"id"`
	Rank             int      `yaml:"rank"`
	EstimatedCostUSD float64  `yaml:"estimated_cost_usd"`
	Capabilities     []string `yaml:"capabilities"`
	RequiresApproval bool     `yaml:"requires_approval"`
}

// LoadFile reads a tier catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file tierFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}

	tiers := make([]models.Tier, 0, len(file.Tiers))
	for _, spec := range file.Tiers {
		caps := make([]models.Capability, 0, len(spec.Capabilities))
		for _, c := range spec.Capabilities {
			caps = append(caps, models.Capability(c))
		}
		tiers = append(tiers, models.Tier{
			ID:               models.TierID(spec.ID),
			Rank:             spec.Rank,
			EstimatedCostUSD: spec.EstimatedCostUSD,
			Capabilities:     caps,
			RequiresApproval: spec.RequiresApproval,
		})
	}

	return New(tiers)
}

// Default returns the built-in three-tier catalog used when no catalog file
// is configured: an approval-free local tier, a research tier with fresh web
// access, and the frontier tier.
func Default() *Catalog {
	cat, err := New([]models.Tier{
		{
			ID:               models.TierLocal,
			Rank:             0,
			EstimatedCostUSD: 0,
			Capabilities:     []models.Capability{models.CapabilityOffline},
			RequiresApproval: false,
		},
		{
			ID:               models.TierResearch,
			Rank:             1,
			EstimatedCostUSD: 0.25,
			Capabilities:     []models.Capability{models.CapabilityFreshWebData},
			RequiresApproval: false,
		},
		{
			ID:               models.TierFrontier,
			Rank:             2,
			EstimatedCostUSD: 1.50,
			Capabilities:     []models.Capability{models.CapabilityFreshWebData, models.CapabilityLongContext},
			RequiresApproval: true,
		},
	})
	if err != nil {
		// The built-in catalog is statically valid.
		panic(err)
	}
	return cat
}
