package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entries := []Entry{
		{InvocationID: "inv-1", Verb: "start", Outcome: "started", PID: 100},
		{InvocationID: "inv-2", Verb: "stop", Outcome: "stopped", PID: 100, Detail: "graceful"},
		{InvocationID: "inv-3", Verb: "start", Outcome: "started", PID: 200},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record %s: %v", entry.Verb, err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].PID != 200 || recent[0].Verb != "start" {
		t.Fatalf("newest entry = %+v, want the second start", recent[0])
	}
	if recent[1].Detail != "graceful" {
		t.Fatalf("entry detail = %q, want graceful", recent[1].Detail)
	}
	if recent[0].RecordedAt.IsZero() {
		t.Fatal("recorded_at not populated")
	}
}

func TestRecentDefaultsLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if err := store.Record(ctx, Entry{InvocationID: "inv", Verb: "status", Outcome: "running"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	recent, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 20 {
		t.Fatalf("len = %d, want default limit 20", len(recent))
	}
}

func TestRecordKeepsProvidedTimestamp(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := store.Record(ctx, Entry{RecordedAt: at, InvocationID: "inv", Verb: "start", Outcome: "started"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	recent, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if !recent[0].RecordedAt.Equal(at) {
		t.Fatalf("recorded_at = %v, want %v", recent[0].RecordedAt, at)
	}
}
