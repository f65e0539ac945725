package models

import "time"

// PermissionOutcome is the result of a single permission evaluation.
type PermissionOutcome string

const (
	// PermissionApproved grants use of the requested tier.
	PermissionApproved PermissionOutcome = "approved"
	// PermissionDenied refuses the requested tier.
	PermissionDenied PermissionOutcome = "denied"
	// PermissionTimedOut means the interactive wait expired. It is treated
	// exactly like a denial: the requested tier must not be used.
	PermissionTimedOut PermissionOutcome = "timed_out"
)

// PermissionPolicy names the policy that produced a decision.
type PermissionPolicy string

const (
	// PolicyAutoApprove grants every escalation by explicit configuration.
	PolicyAutoApprove PermissionPolicy = "auto_approve"
	// PolicyInteractivePrompt asks an attached human operator.
	PolicyInteractivePrompt PermissionPolicy = "interactive_prompt"
	// PolicyOverrideCredential compares a supplied shared secret.
	PolicyOverrideCredential PermissionPolicy = "override_credential"
)

// PermissionDecision is the outcome of one escalation attempt. A decision is
// created fresh per tier evaluation and never reused across tiers.
type PermissionDecision struct {
	// Outcome is the decision itself.
	Outcome PermissionOutcome
	// Policy is the policy that produced the decision.
	Policy PermissionPolicy
	// Reason is a human-readable explanation for the audit trail.
	Reason string
	// DecidedAt is when the decision was made.
	DecidedAt time.Time
}

// Approved returns true only for an explicit approval. Denied and TimedOut
// both mean the requested tier must not be used.
func (d PermissionDecision) Approved() bool {
	return d.Outcome == PermissionApproved
}
