package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewSnapshotStore(dbPath)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	defer store.Close()

	now := time.Now().Truncate(time.Second)
	entries := []Entry{
		{TaskID: "task-a", CapUSD: 10, ReservedUSD: 0, CommittedUSD: 3.5, UpdatedAt: now},
		{TaskID: "task-b", CapUSD: 5, ReservedUSD: 1.25, CommittedUSD: 0, UpdatedAt: now},
	}
	if err := store.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	if loaded[0].TaskID != "task-a" || loaded[0].CommittedUSD != 3.5 {
		t.Errorf("unexpected first entry: %+v", loaded[0])
	}
	if loaded[1].ReservedUSD != 1.25 {
		t.Errorf("expected persisted reserved amount, got %+v", loaded[1])
	}
}

func TestSnapshotStoreUpsert(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewSnapshotStore(dbPath)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	defer store.Close()

	first := []Entry{{TaskID: "task-a", CapUSD: 10, CommittedUSD: 1, UpdatedAt: time.Now()}}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := []Entry{{TaskID: "task-a", CapUSD: 10, CommittedUSD: 4, UpdatedAt: time.Now()}}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry after upsert, got %d", len(loaded))
	}
	if loaded[0].CommittedUSD != 4 {
		t.Errorf("expected updated committed spend 4, got %v", loaded[0].CommittedUSD)
	}
}
