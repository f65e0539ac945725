package models

import "github.com/google/uuid"

// Request is a single inbound work request. Requests are created once per
// inbound call and are immutable after creation; the router never writes to
// them.
type Request struct {
	// ID uniquely identifies this request.
	ID string
	// TaskID groups related requests for budget purposes. The ledger entry
	// for a task is shared by every request carrying the same TaskID.
	TaskID string
	// Payload is the opaque work description forwarded to the tier backend.
	Payload string
	// RequiredCapabilities lists capabilities the serving tier must provide.
	RequiredCapabilities []Capability
	// ForcedTier, when set, is the first candidate regardless of heuristic.
	ForcedTier TierID
	// FreshnessRequired is a hint that the request needs current web data.
	FreshnessRequired bool
	// MaxCostOverrideUSD, when positive, caps this request tighter than the
	// task default.
	MaxCostOverrideUSD float64
}

// NewRequest creates a request for the given task, assigning a fresh ID.
func NewRequest(taskID, payload string) *Request {
	return &Request{
		ID:      uuid.New().String(),
		TaskID:  taskID,
		Payload: payload,
	}
}
