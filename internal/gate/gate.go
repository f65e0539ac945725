// Package gate implements the permission gate for tier escalation. Every
// policy path produces an explicit decision within a bounded time; a missing
// interactive surface, a timeout, or terminated input is a hard denial,
// never an implicit approval and never a hang.
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/Jmi2020/KITT-sub006/internal/logging"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// DefaultPromptTimeout bounds the interactive wait when no timeout is
// configured.
const DefaultPromptTimeout = 60 * time.Second

// Config selects the gate policy and its parameters. The policy is an
// explicit configuration value passed in at construction; Evaluate never
// reads the ambient environment, so the same gate is deterministically
// testable under every policy.
type Config struct {
	// Policy selects which of the three policies evaluates escalations.
	Policy models.PermissionPolicy
	// PromptTimeout bounds the interactive wait.
	PromptTimeout time.Duration
	// OverrideCredential is the configured shared secret for the
	// override-credential policy.
	OverrideCredential string
}

// Gate evaluates escalation requests under a single configured policy.
type Gate struct {
	cfg        Config
	surface    Surface
	credential string
	logger     *logging.Logger
}

// Option configures optional gate collaborators.
type Option func(*Gate)

// WithSurface attaches an interactive approval surface. Without one, the
// interactive-prompt policy denies every escalation with an explicit reason.
func WithSurface(s Surface) Option {
	return func(g *Gate) { g.surface = s }
}

// WithSuppliedCredential sets the credential the caller supplied for the
// override-credential policy.
func WithSuppliedCredential(credential string) Option {
	return func(g *Gate) { g.credential = credential }
}

// WithLogger attaches the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// New creates a gate for the given configuration.
func New(cfg Config, opts ...Option) (*Gate, error) {
	switch cfg.Policy {
	case models.PolicyAutoApprove, models.PolicyInteractivePrompt, models.PolicyOverrideCredential:
	default:
		return nil, fmt.Errorf("unknown gate policy %q", cfg.Policy)
	}

	if cfg.PromptTimeout <= 0 {
		cfg.PromptTimeout = DefaultPromptTimeout
	}

	g := &Gate{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Evaluate decides whether the task may escalate to the target tier. The
// decision is created fresh for this tier and never reused for another; a
// lower paid tier gets its own evaluation. Every path returns within a
// bounded time.
func (g *Gate) Evaluate(ctx context.Context, taskID string, tier models.Tier) models.PermissionDecision {
	var decision models.PermissionDecision

	switch g.cfg.Policy {
	case models.PolicyAutoApprove:
		decision = g.evaluateAuto()
	case models.PolicyInteractivePrompt:
		decision = g.evaluateInteractive(ctx, taskID, tier)
	case models.PolicyOverrideCredential:
		decision = g.evaluateCredential()
	}

	decision.DecidedAt = time.Now()
	g.logger.Log("GATE", "task %s tier %s: %s by %s (%s)",
		taskID, tier.ID, decision.Outcome, decision.Policy, decision.Reason)
	return decision
}

// evaluateAuto approves immediately. Auto-approve is an explicit, auditable
// configuration value, never an implicit fallback.
func (g *Gate) evaluateAuto() models.PermissionDecision {
	return models.PermissionDecision{
		Outcome: models.PermissionApproved,
		Policy:  models.PolicyAutoApprove,
		Reason:  "auto-approved by policy",
	}
}

// evaluateInteractive solicits the attached surface with a bounded wait.
func (g *Gate) evaluateInteractive(ctx context.Context, taskID string, tier models.Tier) models.PermissionDecision {
	deny := func(outcome models.PermissionOutcome, reason string) models.PermissionDecision {
		return models.PermissionDecision{
			Outcome: outcome,
			Policy:  models.PolicyInteractivePrompt,
			Reason:  reason,
		}
	}

	if g.surface == nil {
		// Non-interactive execution context. This must be a loggable
		// denial, not a hang and not an approval.
		return deny(models.PermissionDenied, "no interactive surface")
	}

	promptCtx, cancel := context.WithTimeout(ctx, g.cfg.PromptTimeout)
	defer cancel()

	resp, err := g.surface.Ask(promptCtx, Prompt{
		TaskID:  taskID,
		Tier:    tier,
		Timeout: g.cfg.PromptTimeout,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrPromptTimedOut) || errors.Is(err, context.DeadlineExceeded):
		return deny(models.PermissionTimedOut, "timed out")
	case errors.Is(err, ErrInputTerminated):
		return deny(models.PermissionDenied, "input terminated")
	case errors.Is(err, context.Canceled):
		return deny(models.PermissionDenied, "cancelled by caller")
	default:
		return deny(models.PermissionDenied, fmt.Sprintf("surface error: %v", err))
	}

	if !resp.Approved {
		reason := "denied by operator"
		if resp.Note != "" {
			reason = fmt.Sprintf("denied by operator: %s", resp.Note)
		}
		return deny(models.PermissionDenied, reason)
	}
	return models.PermissionDecision{
		Outcome: models.PermissionApproved,
		Policy:  models.PolicyInteractivePrompt,
		Reason:  "approved by operator",
	}
}

// evaluateCredential compares the supplied credential against the configured
// override secret in constant time.
func (g *Gate) evaluateCredential() models.PermissionDecision {
	if g.cfg.OverrideCredential != "" && g.credential != "" &&
		subtle.ConstantTimeCompare([]byte(g.credential), []byte(g.cfg.OverrideCredential)) == 1 {
		return models.PermissionDecision{
			Outcome: models.PermissionApproved,
			Policy:  models.PolicyOverrideCredential,
			Reason:  "override credential accepted",
		}
	}
	return models.PermissionDecision{
		Outcome: models.PermissionDenied,
		Policy:  models.PolicyOverrideCredential,
		Reason:  "override credential rejected",
	}
}
