package ledger

import (
	"errors"
	"sync"
	"testing"
)

func TestReserveCommitRelease(t *testing.T) {
	l := New(10.0)

	res, err := l.Reserve("task-001", 4.0)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	entry, ok := l.Entry("task-001")
	if !ok {
		t.Fatal("expected lazily created entry")
	}
	if entry.ReservedUSD != 4.0 || entry.CommittedUSD != 0 {
		t.Errorf("expected reserved=4 committed=0, got %+v", entry)
	}

	committed, err := l.Commit(res, 3.5)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committed != 3.5 {
		t.Errorf("expected committed 3.5, got %v", committed)
	}

	entry, _ = l.Entry("task-001")
	if entry.ReservedUSD != 0 || entry.CommittedUSD != 3.5 {
		t.Errorf("expected reserved=0 committed=3.5, got %+v", entry)
	}

	res2, err := l.Reserve("task-001", 2.0)
	if err != nil {
		t.Fatalf("second Reserve: %v", err)
	}
	if err := l.Release(res2); err != nil {
		t.Fatalf("Release: %v", err)
	}

	entry, _ = l.Entry("task-001")
	if entry.ReservedUSD != 0 {
		t.Errorf("expected reserved=0 after release, got %v", entry.ReservedUSD)
	}
	if l.Outstanding() != 0 {
		t.Errorf("expected no outstanding reservations, got %d", l.Outstanding())
	}
}

func TestReserveBudgetExceeded(t *testing.T) {
	l := New(3.0)

	// Frontier-style cost above the cap fails with no state change.
	_, err := l.Reserve("task-001", 5.0)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}

	entry, ok := l.Entry("task-001")
	if !ok {
		t.Fatal("expected entry to exist after failed reserve")
	}
	if entry.ReservedUSD != 0 || entry.CommittedUSD != 0 {
		t.Errorf("failed reserve mutated state: %+v", entry)
	}

	// A cheaper amount still fits.
	if _, err := l.Reserve("task-001", 3.0); err != nil {
		t.Fatalf("affordable reserve failed: %v", err)
	}
}

func TestReserveAccountsCommittedSpend(t *testing.T) {
	l := New(10.0)

	res, _ := l.Reserve("task-001", 6.0)
	if _, err := l.Commit(res, 6.0); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// 6 committed, 10 cap: 5 no longer fits.
	if _, err := l.Reserve("task-001", 5.0); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if _, err := l.Reserve("task-001", 4.0); err != nil {
		t.Fatalf("expected 4 to fit under remaining headroom: %v", err)
	}
}

func TestCommitClampAboveReserved(t *testing.T) {
	l := New(10.0)

	// Hold most of the budget on a second reservation so the headroom above
	// the first reservation is limited.
	other, _ := l.Reserve("task-001", 7.0)
	res, _ := l.Reserve("task-001", 2.0)

	// Actual cost 4 exceeds reserved 2; headroom beyond the reservation is
	// only 1, so the commit clamps at 3.
	committed, err := l.Commit(res, 4.0)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committed != 3.0 {
		t.Errorf("expected clamped commit of 3.0, got %v", committed)
	}

	entry, _ := l.Entry("task-001")
	if entry.ReservedUSD+entry.CommittedUSD > entry.CapUSD {
		t.Errorf("cap invariant violated: %+v", entry)
	}

	if err := l.Release(other); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestCommitBelowReservedAlwaysAccepted(t *testing.T) {
	l := New(5.0)
	res, _ := l.Reserve("task-001", 5.0)

	committed, err := l.Commit(res, 0.75)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committed != 0.75 {
		t.Errorf("expected committed 0.75, got %v", committed)
	}

	entry, _ := l.Entry("task-001")
	if entry.RemainingUSD() != 4.25 {
		t.Errorf("expected 4.25 headroom, got %v", entry.RemainingUSD())
	}
}

func TestDoubleSettleRejected(t *testing.T) {
	l := New(10.0)

	res, _ := l.Reserve("task-001", 1.0)
	if _, err := l.Commit(res, 1.0); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := l.Commit(res, 1.0); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled on second commit, got %v", err)
	}
	if err := l.Release(res); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled on release after commit, got %v", err)
	}

	res2, _ := l.Reserve("task-001", 1.0)
	if err := l.Release(res2); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(res2); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled on second release, got %v", err)
	}
}

func TestConcurrentReservationsNeverExceedCap(t *testing.T) {
	const (
		cap        = 10.0
		goroutines = 8
	)
	// Each goroutine asks for more than its fair share, so if the check and
	// the mutation were not atomic the joint spend would breach the cap.
	amount := cap/goroutines + 1

	l := New(cap)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Reserve("task-001", amount)
			if err != nil {
				return
			}
			if _, err := l.Commit(res, amount); err != nil {
				t.Errorf("Commit: %v", err)
			}
		}()
	}
	wg.Wait()

	entry, _ := l.Entry("task-001")
	if entry.CommittedUSD > cap {
		t.Errorf("committed %v exceeds cap %v", entry.CommittedUSD, cap)
	}
	if entry.ReservedUSD != 0 {
		t.Errorf("expected no reserved spend after settling, got %v", entry.ReservedUSD)
	}
	if l.Outstanding() != 0 {
		t.Errorf("leaked reservations: %d", l.Outstanding())
	}
}

func TestEntriesSnapshot(t *testing.T) {
	l := New(5.0)
	l.Reserve("task-a", 1.0)
	l.Reserve("task-b", 2.0)

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Mutating the snapshot must not affect the ledger.
	entries[0].CommittedUSD = 99

	for _, taskID := range []string{"task-a", "task-b"} {
		entry, _ := l.Entry(taskID)
		if entry.CommittedUSD != 0 {
			t.Errorf("snapshot mutation leaked into ledger entry %s", taskID)
		}
	}
}

func TestReserveValidation(t *testing.T) {
	l := New(10.0)

	if _, err := l.Reserve("", 1.0); err == nil {
		t.Error("expected error for empty task ID")
	}
	if _, err := l.Reserve("task-001", -1.0); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := l.Commit(nil, 1.0); err == nil {
		t.Error("expected error for nil reservation commit")
	}
	if err := l.Release(nil); err == nil {
		t.Error("expected error for nil reservation release")
	}
}

func TestZeroCapRejectsFirstReserve(t *testing.T) {
	l := New(0)
	if _, err := l.Reserve("task-001", 0.01); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded with zero default cap, got %v", err)
	}
	// A zero-cost reservation (local tier) still passes.
	if _, err := l.Reserve("task-001", 0); err != nil {
		t.Errorf("expected zero-cost reserve to pass, got %v", err)
	}
}

func TestRestoreSeedsCommittedSpend(t *testing.T) {
	l := New(10.0)
	l.Restore([]Entry{
		{TaskID: "task-a", CapUSD: 5.0, ReservedUSD: 2.0, CommittedUSD: 3.0},
	})

	entry, ok := l.Entry("task-a")
	if !ok {
		t.Fatal("expected restored entry")
	}
	if entry.CapUSD != 5.0 || entry.CommittedUSD != 3.0 {
		t.Errorf("restored entry = %+v", entry)
	}
	if entry.ReservedUSD != 0 {
		t.Errorf("stale reservation survived restore: %v", entry.ReservedUSD)
	}

	// Headroom is cap minus committed: 2.0 left.
	if _, err := l.Reserve("task-a", 2.5); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded over restored spend, got %v", err)
	}
	if _, err := l.Reserve("task-a", 2.0); err != nil {
		t.Errorf("reserve within restored headroom: %v", err)
	}
}

func TestRestoreDoesNotOverwriteLiveEntries(t *testing.T) {
	l := New(10.0)
	if _, err := l.Reserve("task-a", 4.0); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	l.Restore([]Entry{{TaskID: "task-a", CapUSD: 1.0, CommittedUSD: 1.0}})

	entry, _ := l.Entry("task-a")
	if entry.CapUSD != 10.0 || entry.ReservedUSD != 4.0 {
		t.Errorf("restore overwrote live entry: %+v", entry)
	}
}

func TestSetCap(t *testing.T) {
	l := New(1.0)

	if err := l.SetCap("task-a", 50.0); err != nil {
		t.Fatalf("SetCap: %v", err)
	}
	if _, err := l.Reserve("task-a", 40.0); err != nil {
		t.Errorf("reserve under raised cap: %v", err)
	}

	// Cannot lower below current usage.
	if err := l.SetCap("task-a", 30.0); err == nil {
		t.Error("expected error lowering cap below reserved spend")
	}

	if err := l.SetCap("", 1.0); err == nil {
		t.Error("expected error for empty task ID")
	}
	if err := l.SetCap("task-b", -1.0); err == nil {
		t.Error("expected error for negative cap")
	}
}
