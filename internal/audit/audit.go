// Package audit records permission decisions and terminal routing outcomes.
// The audit trail is what makes a tier downgrade visible instead of silent:
// one record per decision, one per terminal outcome.
package audit

import (
	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// Recorder receives one record per permission decision and one per terminal
// routing outcome.
type Recorder interface {
	RecordDecision(taskID string, tier models.TierID, decision models.PermissionDecision) error
	RecordOutcome(outcome *models.RoutingOutcome) error
}

// Nop is a Recorder that drops every record. Used in tests and when no
// audit database is configured.
type Nop struct{}

// RecordDecision implements Recorder.
func (Nop) RecordDecision(string, models.TierID, models.PermissionDecision) error { return nil }

// RecordOutcome implements Recorder.
func (Nop) RecordOutcome(*models.RoutingOutcome) error { return nil }
