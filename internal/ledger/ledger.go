// Package ledger implements the per-task budget ledger with two-phase
// reserve/commit/release accounting. The reserve step is the single
// synchronization point of the routing core: the cap check and the mutation
// happen inside one critical section, so concurrent reservations on the same
// task can never jointly exceed the cap.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBudgetExceeded is returned when a reservation would breach the task cap.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ErrAlreadySettled is returned when a reservation is committed or released
// more than once. Every reservation settles exactly once.
var ErrAlreadySettled = errors.New("reservation already settled")

// Entry is a snapshot of one task's budget state. Invariant at all times:
// ReservedUSD + CommittedUSD <= CapUSD.
type Entry struct {
	// TaskID identifies the task this entry accounts for.
	TaskID string
	// CapUSD is the hard spending cap for the task.
	CapUSD float64
	// ReservedUSD is spend provisionally held for in-flight dispatches.
	ReservedUSD float64
	// CommittedUSD is spend confirmed by successful dispatches.
	CommittedUSD float64
	// UpdatedAt is when the entry last changed.
	UpdatedAt time.Time
}

// RemainingUSD returns the headroom left under the cap.
func (e Entry) RemainingUSD() float64 {
	return e.CapUSD - e.ReservedUSD - e.CommittedUSD
}

// Reservation is a provisional hold on a task's budget. It must be settled
// by exactly one Commit or Release, including on cancellation unwind.
type Reservation struct {
	// ID uniquely identifies the reservation.
	ID string
	// TaskID is the task whose budget is held.
	TaskID string
	// AmountUSD is the reserved amount.
	AmountUSD float64

	settled bool // guarded by the ledger mutex
}

// Ledger tracks per-task spend against hard caps. Entries are created lazily
// on the first reservation for a task and are never deleted mid-process;
// they are the audit trail for the task.
type Ledger struct {
	mu            sync.Mutex
	defaultCapUSD float64
	entries       map[string]*Entry
	outstanding   map[string]*Reservation
}

// New creates a ledger. Every task entry is created with the given default
// cap; a cap of zero or less means the first reservation for the task will
// always fail, which is the safe default for an unconfigured deployment.
func New(defaultCapUSD float64) *Ledger {
	return &Ledger{
		defaultCapUSD: defaultCapUSD,
		entries:       make(map[string]*Entry),
		outstanding:   make(map[string]*Reservation),
	}
}

// Reserve atomically checks the task cap and holds the given amount. On
// breach it returns ErrBudgetExceeded with no state change. The entry for
// the task is created lazily with the ledger's default cap.
func (l *Ledger) Reserve(taskID string, amountUSD float64) (*Reservation, error) {
	if taskID == "" {
		return nil, fmt.Errorf("reserve: empty task ID")
	}
	if amountUSD < 0 {
		return nil, fmt.Errorf("reserve: negative amount %v", amountUSD)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entry(taskID)
	if entry.ReservedUSD+entry.CommittedUSD+amountUSD > entry.CapUSD {
		return nil, fmt.Errorf("reserve %.4f USD for task %s (cap %.4f, reserved %.4f, committed %.4f): %w",
			amountUSD, taskID, entry.CapUSD, entry.ReservedUSD, entry.CommittedUSD, ErrBudgetExceeded)
	}

	entry.ReservedUSD += amountUSD
	entry.UpdatedAt = time.Now()

	res := &Reservation{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		AmountUSD: amountUSD,
	}
	l.outstanding[res.ID] = res
	return res, nil
}

// Commit confirms a reservation with the actual metered cost and returns the
// amount committed. Committing less than reserved is always accepted; an
// actual above the reserved amount is clamped to the reserved amount plus
// the remaining headroom under the cap, re-checked inside the same critical
// section, so the cap invariant holds even for under-estimated dispatches.
func (l *Ledger) Commit(res *Reservation, actualUSD float64) (float64, error) {
	if res == nil {
		return 0, fmt.Errorf("commit: nil reservation")
	}
	if actualUSD < 0 {
		return 0, fmt.Errorf("commit: negative amount %v", actualUSD)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res.settled {
		return 0, fmt.Errorf("commit reservation %s: %w", res.ID, ErrAlreadySettled)
	}

	entry := l.entry(res.TaskID)
	entry.ReservedUSD -= res.AmountUSD

	commit := actualUSD
	if headroom := entry.CapUSD - entry.ReservedUSD - entry.CommittedUSD; commit > headroom {
		commit = headroom
	}

	entry.CommittedUSD += commit
	entry.UpdatedAt = time.Now()

	res.settled = true
	delete(l.outstanding, res.ID)
	return commit, nil
}

// Release returns a reservation to headroom without committing any spend.
// Used when a dispatch fails, the request falls back, or the caller cancels.
func (l *Ledger) Release(res *Reservation) error {
	if res == nil {
		return fmt.Errorf("release: nil reservation")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res.settled {
		return fmt.Errorf("release reservation %s: %w", res.ID, ErrAlreadySettled)
	}

	entry := l.entry(res.TaskID)
	entry.ReservedUSD -= res.AmountUSD
	entry.UpdatedAt = time.Now()

	res.settled = true
	delete(l.outstanding, res.ID)
	return nil
}

// Restore seeds the ledger from persisted entries. Reserved amounts are
// dropped: a persisted reservation belongs to a process that no longer
// exists, and its hold must not survive into this one. Existing in-memory
// entries are not overwritten.
func (l *Ledger) Restore(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		if _, ok := l.entries[e.TaskID]; ok {
			continue
		}
		l.entries[e.TaskID] = &Entry{
			TaskID:       e.TaskID,
			CapUSD:       e.CapUSD,
			CommittedUSD: e.CommittedUSD,
			UpdatedAt:    e.UpdatedAt,
		}
	}
}

// SetCap sets the cap for a task, creating the entry if needed. Lowering the
// cap below spend already reserved or committed is rejected.
func (l *Ledger) SetCap(taskID string, capUSD float64) error {
	if taskID == "" {
		return fmt.Errorf("set cap: empty task ID")
	}
	if capUSD < 0 {
		return fmt.Errorf("set cap: negative cap %v", capUSD)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entry(taskID)
	if capUSD < entry.ReservedUSD+entry.CommittedUSD {
		return fmt.Errorf("set cap %.4f USD for task %s below current usage %.4f",
			capUSD, taskID, entry.ReservedUSD+entry.CommittedUSD)
	}
	entry.CapUSD = capUSD
	entry.UpdatedAt = time.Now()
	return nil
}

// Entry returns a snapshot of the task's budget state and whether an entry
// exists yet.
func (l *Ledger) Entry(taskID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[taskID]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Entries returns a snapshot of every task entry.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, *entry)
	}
	return out
}

// Outstanding returns the number of unsettled reservations. A non-zero
// value after all routing has finished means a reservation leaked.
func (l *Ledger) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outstanding)
}

// entry returns the entry for a task, creating it lazily with the default
// cap. Must be called with the ledger mutex held.
func (l *Ledger) entry(taskID string) *Entry {
	if entry, ok := l.entries[taskID]; ok {
		return entry
	}
	entry := &Entry{
		TaskID:    taskID,
		CapUSD:    l.defaultCapUSD,
		UpdatedAt: time.Now(),
	}
	l.entries[taskID] = entry
	return entry
}
