package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordsDecisions(t *testing.T) {
	store := openTestStore(t)

	decision := models.PermissionDecision{
		Outcome:   models.PermissionDenied,
		Policy:    models.PolicyInteractivePrompt,
		Reason:    "no interactive surface",
		DecidedAt: time.Now(),
	}
	if err := store.RecordDecision("task-001", models.TierFrontier, decision); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	records, err := store.Decisions("task-001")
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(records))
	}
	r := records[0]
	if r.TierID != models.TierFrontier {
		t.Errorf("expected frontier tier, got %q", r.TierID)
	}
	if r.Outcome != models.PermissionDenied || r.Policy != models.PolicyInteractivePrompt {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Reason != "no interactive surface" {
		t.Errorf("unexpected reason %q", r.Reason)
	}
}

func TestStoreRecordsOutcomes(t *testing.T) {
	store := openTestStore(t)

	outcome := &models.RoutingOutcome{
		RequestID:        "req-1",
		TaskID:           "task-001",
		TierUsed:         models.TierResearch,
		CommittedCostUSD: 0.25,
		Status:           models.RoutingSuccess,
		Attempts: []models.Attempt{
			{Tier: models.TierFrontier, Stage: models.StageGate, Reason: "no interactive surface"},
			{Tier: models.TierResearch, Stage: models.StageDispatch, Reason: "success"},
		},
	}
	if err := store.RecordOutcome(outcome); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	records, err := store.RecentOutcomes(10)
	if err != nil {
		t.Fatalf("RecentOutcomes: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(records))
	}
	r := records[0]
	if r.TierUsed != models.TierResearch || r.Status != models.RoutingSuccess {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.Attempts != 2 {
		t.Errorf("expected 2 attempts recorded, got %d", r.Attempts)
	}
}

func TestNopRecorder(t *testing.T) {
	var rec Recorder = Nop{}
	if err := rec.RecordDecision("t", models.TierLocal, models.PermissionDecision{}); err != nil {
		t.Errorf("Nop RecordDecision: %v", err)
	}
	if err := rec.RecordOutcome(&models.RoutingOutcome{}); err != nil {
		t.Errorf("Nop RecordOutcome: %v", err)
	}
}
