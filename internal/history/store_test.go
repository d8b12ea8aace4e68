package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"picgaz/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := history.Run{
		RunID:       "run-1",
		Plan:        "photos",
		Source:      "/src",
		Destination: "/dst",
		Algorithm:   "md5",
		StartState:  "missing",
		Outcome:     history.OutcomeOK,
		Added:       3,
		Duplicates:  1,
		StartedAt:   base,
		FinishedAt:  base.Add(2 * time.Second),
	}
	second := first
	second.RunID = "run-2"
	second.StartState = "corrupt"
	second.Outcome = history.OutcomeAborted
	second.Error = "manifest corrupt"
	second.StartedAt = base.Add(time.Minute)
	second.FinishedAt = base.Add(time.Minute)

	for _, run := range []history.Run{first, second} {
		if _, err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record %s: %v", run.RunID, err)
		}
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-2" || runs[0].Outcome != history.OutcomeAborted || runs[0].Error != "manifest corrupt" {
		t.Fatalf("unexpected newest run: %+v", runs[0])
	}
	if runs[1].Added != 3 || runs[1].Duplicates != 1 || !runs[1].StartedAt.Equal(base) {
		t.Fatalf("unexpected older run: %+v", runs[1])
	}
	if got := runs[1].Duration(); got != 2*time.Second {
		t.Fatalf("Duration = %v", got)
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 run with limit, got %d", len(limited))
	}
}

func TestRecordRequiresIdentity(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), history.Run{Outcome: history.OutcomeOK}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if _, err := store.Record(context.Background(), history.Run{RunID: "x"}); err == nil {
		t.Fatal("expected error for missing outcome")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Run{RunID: "persisted", Outcome: history.OutcomeOK}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "persisted" {
		t.Fatalf("unexpected runs after reopen: %+v", runs)
	}
}
