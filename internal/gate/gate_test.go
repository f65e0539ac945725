package gate

import (
	"context"
	"testing"
	"time"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

var frontierTier = models.Tier{
	ID:               models.TierFrontier,
	Rank:             2,
	EstimatedCostUSD: 1.50,
	RequiresApproval: true,
}

// blockingSurface never answers; the gate's bounded wait must cut it off.
type blockingSurface struct{}

func (blockingSurface) Ask(ctx context.Context, prompt Prompt) (Response, error) {
	<-ctx.Done()
	return Response{}, ctx.Err()
}

// staticSurface answers immediately with a fixed response or error.
type staticSurface struct {
	resp Response
	err  error
}

func (s staticSurface) Ask(ctx context.Context, prompt Prompt) (Response, error) {
	return s.resp, s.err
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	_, err := New(Config{Policy: models.PermissionPolicy("ambient")})
	if err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestAutoApprove(t *testing.T) {
	g, err := New(Config{Policy: models.PolicyAutoApprove})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d := g.Evaluate(context.Background(), "task-001", frontierTier)
	if d.Outcome != models.PermissionApproved {
		t.Errorf("expected approval, got %q", d.Outcome)
	}
	if d.Policy != models.PolicyAutoApprove {
		t.Errorf("expected auto_approve policy, got %q", d.Policy)
	}
	if d.Reason != "auto-approved by policy" {
		t.Errorf("unexpected reason %q", d.Reason)
	}
	if d.DecidedAt.IsZero() {
		t.Error("expected DecidedAt to be set")
	}
}

func TestInteractiveNoSurface(t *testing.T) {
	g, err := New(Config{Policy: models.PolicyInteractivePrompt, PromptTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan models.PermissionDecision, 1)
	go func() {
		done <- g.Evaluate(context.Background(), "task-001", frontierTier)
	}()

	select {
	case d := <-done:
		if d.Outcome != models.PermissionDenied {
			t.Errorf("expected denial, got %q", d.Outcome)
		}
		if d.Reason != "no interactive surface" {
			t.Errorf("unexpected reason %q", d.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("Evaluate hung with no interactive surface")
	}
}

func TestInteractiveTimeout(t *testing.T) {
	g, err := New(
		Config{Policy: models.PolicyInteractivePrompt, PromptTimeout: 20 * time.Millisecond},
		WithSurface(blockingSurface{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	d := g.Evaluate(context.Background(), "task-001", frontierTier)
	elapsed := time.Since(start)

	if d.Outcome != models.PermissionTimedOut {
		t.Errorf("expected timed_out, got %q", d.Outcome)
	}
	if d.Reason != "timed out" {
		t.Errorf("unexpected reason %q", d.Reason)
	}
	if elapsed > time.Second {
		t.Errorf("Evaluate took %v, want bounded by the configured timeout", elapsed)
	}
}

func TestInteractiveInputTerminated(t *testing.T) {
	g, _ := New(
		Config{Policy: models.PolicyInteractivePrompt, PromptTimeout: time.Second},
		WithSurface(staticSurface{err: ErrInputTerminated}),
	)

	d := g.Evaluate(context.Background(), "task-001", frontierTier)
	if d.Outcome != models.PermissionDenied {
		t.Errorf("expected denial, got %q", d.Outcome)
	}
	if d.Reason != "input terminated" {
		t.Errorf("unexpected reason %q", d.Reason)
	}
}

func TestInteractiveOperatorAnswers(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		outcome models.PermissionOutcome
	}{
		{
			name:    "approved",
			resp:    Response{Approved: true},
			outcome: models.PermissionApproved,
		},
		{
			name:    "denied",
			resp:    Response{Approved: false, Note: "too expensive"},
			outcome: models.PermissionDenied,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := New(
				Config{Policy: models.PolicyInteractivePrompt, PromptTimeout: time.Second},
				WithSurface(staticSurface{resp: tc.resp}),
			)

			d := g.Evaluate(context.Background(), "task-001", frontierTier)
			if d.Outcome != tc.outcome {
				t.Errorf("expected %q, got %q (%s)", tc.outcome, d.Outcome, d.Reason)
			}
		})
	}
}

func TestInteractiveCallerCancelled(t *testing.T) {
	g, _ := New(
		Config{Policy: models.PolicyInteractivePrompt, PromptTimeout: time.Minute},
		WithSurface(blockingSurface{}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	d := g.Evaluate(ctx, "task-001", frontierTier)
	if d.Outcome != models.PermissionDenied {
		t.Errorf("expected denial on caller cancellation, got %q", d.Outcome)
	}
}

func TestOverrideCredential(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		supplied   string
		outcome    models.PermissionOutcome
		reason     string
	}{
		{
			name:       "matching credential",
			configured: "kitt-override",
			supplied:   "kitt-override",
			outcome:    models.PermissionApproved,
			reason:     "override credential accepted",
		},
		{
			name:       "wrong credential",
			configured: "kitt-override",
			supplied:   "guess",
			outcome:    models.PermissionDenied,
			reason:     "override credential rejected",
		},
		{
			name:       "no credential supplied",
			configured: "kitt-override",
			supplied:   "",
			outcome:    models.PermissionDenied,
			reason:     "override credential rejected",
		},
		{
			name:       "no credential configured",
			configured: "",
			supplied:   "anything",
			outcome:    models.PermissionDenied,
			reason:     "override credential rejected",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(
				Config{Policy: models.PolicyOverrideCredential, OverrideCredential: tc.configured},
				WithSuppliedCredential(tc.supplied),
			)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			d := g.Evaluate(context.Background(), "task-001", frontierTier)
			if d.Outcome != tc.outcome {
				t.Errorf("expected %q, got %q", tc.outcome, d.Outcome)
			}
			if d.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, d.Reason)
			}
		})
	}
}

func TestChannelSurfaceRoundTrip(t *testing.T) {
	surface := NewChannelSurface()
	g, _ := New(
		Config{Policy: models.PolicyInteractivePrompt, PromptTimeout: time.Second},
		WithSurface(surface),
	)

	// Operator side: approve whatever arrives.
	go func() {
		pending := <-surface.Requests()
		surface.Respond(pending.ID, Response{Approved: true})
	}()

	d := g.Evaluate(context.Background(), "task-001", frontierTier)
	if d.Outcome != models.PermissionApproved {
		t.Errorf("expected approval via channel surface, got %q (%s)", d.Outcome, d.Reason)
	}
}

func TestChannelSurfaceIgnoresUnknownResponse(t *testing.T) {
	surface := NewChannelSurface()
	// Must not panic or deliver anywhere.
	surface.Respond("task-x/frontier", Response{Approved: true})
}
