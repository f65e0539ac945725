package models

// RoutingStatus is the terminal status of a route call.
type RoutingStatus string

const (
	// RoutingSuccess means a tier served the request and cost was committed.
	RoutingSuccess RoutingStatus = "success"
	// RoutingExhaustedFallback means every candidate tier failed or was
	// refused and no lower tier remained.
	RoutingExhaustedFallback RoutingStatus = "exhausted_fallback"
	// RoutingBudgetExceeded means the request terminated because no
	// affordable tier remained; every non-gate failure was a budget refusal.
	RoutingBudgetExceeded RoutingStatus = "budget_exceeded"
	// RoutingPermissionDenied means every attempted tier was refused at the
	// permission gate.
	RoutingPermissionDenied RoutingStatus = "permission_denied"
)

// AttemptStage identifies where in the pipeline an attempt ended.
type AttemptStage string

const (
	// StageGate means the attempt ended at the permission gate.
	StageGate AttemptStage = "gate"
	// StageBudget means the attempt ended at the budget ledger.
	StageBudget AttemptStage = "budget"
	// StageDispatch means the attempt reached the tier client.
	StageDispatch AttemptStage = "dispatch"
)

// Attempt records one tier attempt for the observability chain.
type Attempt struct {
	// Tier is the tier that was attempted.
	Tier TierID
	// Stage is the pipeline stage the attempt ended at.
	Stage AttemptStage
	// Reason explains why the attempt ended there.
	Reason string
}

// RoutingOutcome is the result of a single route call. The outcome always
// states the tier that truly served the request; a fallback is never
// reported as success on the originally requested tier.
type RoutingOutcome struct {
	// RequestID is the request this outcome belongs to.
	RequestID string
	// TaskID is the budget task the request belonged to.
	TaskID string
	// TierUsed is the tier that served the request; empty on failure.
	TierUsed TierID
	// Attempts is the ordered chain of tiers attempted.
	Attempts []Attempt
	// CommittedCostUSD is the total spend committed for this request.
	CommittedCostUSD float64
	// Status is the terminal status.
	Status RoutingStatus
}

// Succeeded returns true if a tier served the request.
func (o *RoutingOutcome) Succeeded() bool {
	return o.Status == RoutingSuccess
}
