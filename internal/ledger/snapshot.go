package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore persists ledger entries to SQLite so the status command and
// post-mortem tooling can inspect per-task spend after the process exits.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (and creates if needed) the snapshot database at
// the given path.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_entries (
			task_id TEXT PRIMARY KEY,
			cap_usd REAL,
			reserved_usd REAL,
			committed_usd REAL,
			updated_at DATETIME
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger_entries table: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Save upserts the given entries. Reserved amounts are persisted too: a
// non-zero reserved value in a snapshot taken after shutdown points at a
// leaked reservation.
func (s *SnapshotStore) Save(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}

	for _, e := range entries {
		_, err := tx.Exec(`
			INSERT INTO ledger_entries (task_id, cap_usd, reserved_usd, committed_usd, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(task_id) DO UPDATE SET
				cap_usd = excluded.cap_usd,
				reserved_usd = excluded.reserved_usd,
				committed_usd = excluded.committed_usd,
				updated_at = excluded.updated_at
		`, e.TaskID, e.CapUSD, e.ReservedUSD, e.CommittedUSD, e.UpdatedAt.Format(time.RFC3339))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert ledger entry %s: %w", e.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}

// Load reads all persisted entries.
func (s *SnapshotStore) Load() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT task_id, cap_usd, reserved_usd, committed_usd, updated_at
		FROM ledger_entries ORDER BY task_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updatedAt string
		if err := rows.Scan(&e.TaskID, &e.CapUSD, &e.ReservedUSD, &e.CommittedUSD, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
