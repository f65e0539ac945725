package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jmi2020/KITT-sub006/internal/audit"
	"github.com/Jmi2020/KITT-sub006/internal/catalog"
	"github.com/Jmi2020/KITT-sub006/internal/gate"
	"github.com/Jmi2020/KITT-sub006/internal/ledger"
	"github.com/Jmi2020/KITT-sub006/internal/logging"
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// Config wires the router's collaborators. Catalog, Gate, Ledger, and
// Clients are required; Audit defaults to the no-op recorder and Logger to
// the no-op logger.
type Config struct {
	Catalog  *catalog.Catalog
	Gate     *gate.Gate
	Ledger   *ledger.Ledger
	Clients  *Registry
	Fallback *FallbackPolicy
	Audit    audit.Recorder
	Logger   *logging.Logger
}

// Router makes a single routing+permission+budget decision per request.
// Routers are safe for concurrent use; the ledger is the only shared
// mutable state and synchronizes internally.
type Router struct {
	catalog  *catalog.Catalog
	gate     *gate.Gate
	ledger   *ledger.Ledger
	clients  *Registry
	fallback *FallbackPolicy
	audit    audit.Recorder
	logger   *logging.Logger
}

// New creates a router from the given configuration.
func New(cfg Config) (*Router, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("router requires a tier catalog")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("router requires a permission gate")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("router requires a budget ledger")
	}
	if cfg.Clients == nil {
		return nil, fmt.Errorf("router requires a client registry")
	}
	if cfg.Fallback == nil {
		cfg.Fallback = NewFallbackPolicy(cfg.Catalog, 0)
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.Nop{}
	}

	return &Router{
		catalog:  cfg.Catalog,
		gate:     cfg.Gate,
		ledger:   cfg.Ledger,
		clients:  cfg.Clients,
		fallback: cfg.Fallback,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
	}, nil
}

// Route serves one request: candidate tier, permission gate, budget
// reservation, dispatch, and deterministic fallback on denial or failure.
// Attempts are strictly sequential and no tier is tried twice within one
// call. The returned outcome always states the tier that truly served the
// request. A non-nil error is returned only for malformed requests (no tier
// satisfies, unknown forced tier) or caller cancellation; terminal
// denial/budget/exhaustion classifications are reported on the outcome.
func (r *Router) Route(ctx context.Context, req *models.Request) (*models.RoutingOutcome, error) {
	candidate, err := r.catalog.SelectInitial(req)
	if err != nil {
		return nil, err
	}

	var (
		attempts  []models.Attempt
		attempted []models.TierID
	)

	for {
		if err := ctx.Err(); err != nil {
			return r.terminal(req, attempts, err), err
		}

		r.logger.Log("ROUTE", "request %s task %s: attempting tier %s", req.ID, req.TaskID, candidate.ID)

		attempt, outcome := r.attemptTier(ctx, req, candidate)
		attempts = append(attempts, attempt)
		if outcome != nil {
			outcome.Attempts = attempts
			r.recordOutcome(outcome)
			return outcome, nil
		}

		// A cancelled dispatch has already released its reservation; stop
		// instead of burning through lower tiers the caller no longer wants.
		if err := ctx.Err(); err != nil {
			return r.terminal(req, attempts, err), err
		}

		attempted = append(attempted, candidate.ID)
		next, ok := r.fallback.Next(attempted)
		if !ok {
			r.logger.Log("ROUTE", "request %s: fallback exhausted after %d attempts", req.ID, len(attempts))
			return r.terminal(req, attempts, nil), nil
		}
		candidate = next
	}
}

// attemptTier runs the gate/reserve/dispatch pipeline for one candidate.
// It returns the attempt record and, when the dispatch succeeded, the
// success outcome; a nil outcome means fall back.
func (r *Router) attemptTier(ctx context.Context, req *models.Request, tier models.Tier) (models.Attempt, *models.RoutingOutcome) {
	// The local/no-escalation tier skips the gate entirely; baseline
	// capability needs no approval. Higher tiers are evaluated per tier: a
	// denial for one tier is never reused for another.
	if tier.RequiresApproval {
		decision := r.gate.Evaluate(ctx, req.TaskID, tier)
		if err := r.audit.RecordDecision(req.TaskID, tier.ID, decision); err != nil {
			r.logger.Log("AUDIT", "record decision for task %s: %v", req.TaskID, err)
		}
		if !decision.Approved() {
			return models.Attempt{Tier: tier.ID, Stage: models.StageGate, Reason: decision.Reason}, nil
		}
	}

	// A per-request cost override caps this request tighter than the task
	// default. Refusals here are budget attempts, distinct from denials.
	if req.MaxCostOverrideUSD > 0 && tier.EstimatedCostUSD > req.MaxCostOverrideUSD {
		reason := fmt.Sprintf("estimated cost %.4f exceeds request cost cap %.4f",
			tier.EstimatedCostUSD, req.MaxCostOverrideUSD)
		return models.Attempt{Tier: tier.ID, Stage: models.StageBudget, Reason: reason}, nil
	}

	res, err := r.ledger.Reserve(req.TaskID, tier.EstimatedCostUSD)
	if err != nil {
		if !errors.Is(err, ledger.ErrBudgetExceeded) {
			r.logger.Log("LEDGER", "reserve for request %s on tier %s: %v", req.ID, tier.ID, err)
		}
		return models.Attempt{Tier: tier.ID, Stage: models.StageBudget, Reason: err.Error()}, nil
	}

	client, err := r.clients.Lookup(tier.ID)
	if err != nil {
		r.mustRelease(res)
		return models.Attempt{Tier: tier.ID, Stage: models.StageDispatch, Reason: err.Error()}, nil
	}

	result, err := client.Dispatch(ctx, req, tier)
	if err != nil {
		// Release before unwinding; a dispatch that fails after reservation
		// must never commit, and cancellation must not leak the hold.
		r.mustRelease(res)
		r.logger.Log("DISPATCH", "tier %s failed for request %s: %v", tier.ID, req.ID, err)
		return models.Attempt{Tier: tier.ID, Stage: models.StageDispatch, Reason: err.Error()}, nil
	}

	committed, err := r.ledger.Commit(res, result.ActualCostUSD)
	if err != nil {
		// Settlement bookkeeping failed; the dispatch itself succeeded, so
		// surface the tier that ran rather than pretending it didn't.
		r.logger.Log("LEDGER", "commit for request %s on tier %s: %v", req.ID, tier.ID, err)
	}

	attempt := models.Attempt{Tier: tier.ID, Stage: models.StageDispatch, Reason: "success"}
	return attempt, &models.RoutingOutcome{
		RequestID:        req.ID,
		TaskID:           req.TaskID,
		TierUsed:         tier.ID,
		CommittedCostUSD: committed,
		Status:           models.RoutingSuccess,
	}
}

// terminal builds and records the terminal failure outcome for a route call.
func (r *Router) terminal(req *models.Request, attempts []models.Attempt, cause error) *models.RoutingOutcome {
	outcome := &models.RoutingOutcome{
		RequestID: req.ID,
		TaskID:    req.TaskID,
		Attempts:  attempts,
		Status:    classifyTerminal(attempts),
	}
	if cause != nil {
		r.logger.Log("ROUTE", "request %s terminated: %v", req.ID, cause)
	}
	r.recordOutcome(outcome)
	return outcome
}

func (r *Router) recordOutcome(outcome *models.RoutingOutcome) {
	if err := r.audit.RecordOutcome(outcome); err != nil {
		r.logger.Log("AUDIT", "record outcome for request %s: %v", outcome.RequestID, err)
	}
}

// mustRelease releases a reservation; a failure here is a bookkeeping bug
// worth logging but never masks the original dispatch error.
func (r *Router) mustRelease(res *ledger.Reservation) {
	if err := r.ledger.Release(res); err != nil {
		r.logger.Log("LEDGER", "release reservation %s: %v", res.ID, err)
	}
}

// classifyTerminal maps the attempt trail to a terminal status: permission
// denied when every attempt died at the gate, budget exceeded when the rest
// died at the ledger, exhausted fallback otherwise.
func classifyTerminal(attempts []models.Attempt) models.RoutingStatus {
	if len(attempts) == 0 {
		return models.RoutingExhaustedFallback
	}

	allGate := true
	sawBudget := false
	sawDispatch := false
	for _, a := range attempts {
		switch a.Stage {
		case models.StageGate:
		case models.StageBudget:
			allGate = false
			sawBudget = true
		case models.StageDispatch:
			allGate = false
			sawDispatch = true
		}
	}

	switch {
	case allGate:
		return models.RoutingPermissionDenied
	case sawBudget && !sawDispatch:
		return models.RoutingBudgetExceeded
	default:
		return models.RoutingExhaustedFallback
	}
}
