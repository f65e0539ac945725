package models

import "testing"

func TestTierIDValid(t *testing.T) {
	tests := []struct {
		id    TierID
		valid bool
	}{
		{TierLocal, true},
		{TierResearch, true},
		{TierFrontier, true},
		{TierID("premium"), false},
		{TierID(""), false},
	}

	for _, tc := range tests {
		if got := tc.id.Valid(); got != tc.valid {
			t.Errorf("TierID(%q).Valid() = %v, want %v", tc.id, got, tc.valid)
		}
	}
}

func TestTierSatisfies(t *testing.T) {
	frontier := Tier{
		ID:           TierFrontier,
		Rank:         2,
		Capabilities: []Capability{CapabilityFreshWebData, CapabilityLongContext},
	}
	local := Tier{
		ID:           TierLocal,
		Rank:         0,
		Capabilities: []Capability{CapabilityOffline},
	}

	tests := []struct {
		name     string
		tier     Tier
		required []Capability
		want     bool
	}{
		{
			name:     "no requirements",
			tier:     local,
			required: nil,
			want:     true,
		},
		{
			name:     "single match",
			tier:     frontier,
			required: []Capability{CapabilityFreshWebData},
			want:     true,
		},
		{
			name:     "all match",
			tier:     frontier,
			required: []Capability{CapabilityFreshWebData, CapabilityLongContext},
			want:     true,
		},
		{
			name:     "partial match fails",
			tier:     frontier,
			required: []Capability{CapabilityFreshWebData, CapabilityOffline},
			want:     false,
		},
		{
			name:     "local cannot serve fresh web data",
			tier:     local,
			required: []Capability{CapabilityFreshWebData},
			want:     false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tier.Satisfies(tc.required); got != tc.want {
				t.Errorf("Satisfies(%v) = %v, want %v", tc.required, got, tc.want)
			}
		})
	}
}

func TestNewRequestAssignsID(t *testing.T) {
	req := NewRequest("task-001", "summarize the latest release notes")

	if req.ID == "" {
		t.Error("expected non-empty request ID")
	}
	if req.TaskID != "task-001" {
		t.Errorf("expected TaskID 'task-001', got %q", req.TaskID)
	}

	other := NewRequest("task-001", "same task, second request")
	if other.ID == req.ID {
		t.Error("expected distinct IDs for distinct requests")
	}
}

func TestPermissionDecisionApproved(t *testing.T) {
	tests := []struct {
		outcome PermissionOutcome
		want    bool
	}{
		{PermissionApproved, true},
		{PermissionDenied, false},
		{PermissionTimedOut, false},
	}

	for _, tc := range tests {
		d := PermissionDecision{Outcome: tc.outcome}
		if got := d.Approved(); got != tc.want {
			t.Errorf("decision %q: Approved() = %v, want %v", tc.outcome, got, tc.want)
		}
	}
}
