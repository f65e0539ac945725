package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Jmi2020/KITT-sub006/pkg/models"
)

// Store is the SQLite-backed Recorder. WAL mode is enabled so the status
// command can read while a route is in flight.
type Store struct {
	db *sql.DB
}

// DecisionRecord is one persisted permission decision.
type DecisionRecord struct {
	ID        string
	TaskID    string
	TierID    models.TierID
	Outcome   models.PermissionOutcome
	Policy    models.PermissionPolicy
	Reason    string
	DecidedAt time.Time
}

// OutcomeRecord is one persisted terminal routing outcome.
type OutcomeRecord struct {
	RequestID        string
	TaskID           string
	TierUsed         models.TierID
	Status           models.RoutingStatus
	CommittedCostUSD float64
	Attempts         int
	CreatedAt        time.Time
}

// Open opens (and creates if needed) the audit database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			tier_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			policy TEXT NOT NULL,
			reason TEXT,
			decided_at DATETIME
		);
		CREATE TABLE IF NOT EXISTS outcomes (
			request_id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			tier_used TEXT,
			status TEXT NOT NULL,
			committed_cost_usd REAL,
			attempts INT,
			created_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_task ON decisions(task_id);
		CREATE INDEX IF NOT EXISTS idx_outcomes_task ON outcomes(task_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordDecision persists one permission decision.
func (s *Store) RecordDecision(taskID string, tier models.TierID, decision models.PermissionDecision) error {
	_, err := s.db.Exec(`
		INSERT INTO decisions (id, task_id, tier_id, outcome, policy, reason, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), taskID, string(tier), string(decision.Outcome),
		string(decision.Policy), decision.Reason, decision.DecidedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// RecordOutcome persists one terminal routing outcome.
func (s *Store) RecordOutcome(outcome *models.RoutingOutcome) error {
	_, err := s.db.Exec(`
		INSERT INTO outcomes (request_id, task_id, tier_used, status, committed_cost_usd, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, outcome.RequestID, outcome.TaskID, string(outcome.TierUsed), string(outcome.Status),
		outcome.CommittedCostUSD, len(outcome.Attempts), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Decisions returns the decisions recorded for a task, oldest first.
func (s *Store) Decisions(taskID string) ([]DecisionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, task_id, tier_id, outcome, policy, reason, decided_at
		FROM decisions WHERE task_id = ? ORDER BY decided_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var r DecisionRecord
		var decidedAt string
		if err := rows.Scan(&r.ID, &r.TaskID, &r.TierID, &r.Outcome, &r.Policy, &r.Reason, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		r.DecidedAt, _ = time.Parse(time.RFC3339, decidedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecentOutcomes returns the most recent terminal outcomes, newest first.
func (s *Store) RecentOutcomes(limit int) ([]OutcomeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT request_id, task_id, tier_used, status, committed_cost_usd, attempts, created_at
		FROM outcomes ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var r OutcomeRecord
		var createdAt string
		if err := rows.Scan(&r.RequestID, &r.TaskID, &r.TierUsed, &r.Status, &r.CommittedCostUSD, &r.Attempts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
