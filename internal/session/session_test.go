package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speckit/cogmem/internal/database"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFilterDedupesAcrossCalls(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)

	m := &database.Memory{ID: "m1", AnchorID: "a1", FilePath: "f1"}

	first, err := mgr.Filter("session-a", []*database.Memory{m})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 memory on first send, got %d", len(first))
	}

	second, err := mgr.Filter("session-a", []*database.Memory{m})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected 0 memories on second send (already sent), got %d", len(second))
	}
}

func TestFilterIsolatedPerSession(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)

	m := &database.Memory{ID: "m1", AnchorID: "a1", FilePath: "f1"}
	_, _ = mgr.Filter("session-a", []*database.Memory{m})

	result, err := mgr.Filter("session-b", []*database.Memory{m})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected different session to see the memory again, got %d", len(result))
	}
}

func TestResetInterruptedMarksActiveSessionsInterrupted(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)

	if err := mgr.Save(CheckpointInput{SessionID: "s1", CurrentTask: "task 1"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	count, err := mgr.ResetInterrupted()
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 session reset, got %d", count)
	}

	interrupted, err := mgr.ListInterrupted()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(interrupted) != 1 || interrupted[0].SessionID != "s1" {
		t.Fatalf("expected s1 listed as interrupted, got %+v", interrupted)
	}
}

func TestRecoverReactivatesSession(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)

	_ = mgr.Save(CheckpointInput{SessionID: "s1", CurrentTask: "task 1"})
	_, _ = mgr.ResetInterrupted()

	result, err := mgr.Recover("s1")
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if !result.Recovered {
		t.Fatalf("expected Recovered=true for an interrupted session")
	}
	if result.Checkpoint.CurrentTask != "task 1" {
		t.Fatalf("expected recovered checkpoint to carry prior task")
	}

	interrupted, _ := mgr.ListInterrupted()
	if len(interrupted) != 0 {
		t.Fatalf("expected no sessions left interrupted after recovery")
	}
}

func TestRecoverNonInterruptedSessionIsNoop(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)

	_ = mgr.Save(CheckpointInput{SessionID: "s1", CurrentTask: "task 1"})

	result, err := mgr.Recover("s1")
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Recovered {
		t.Fatalf("expected Recovered=false for an active (non-interrupted) session")
	}
	if result.Checkpoint != nil {
		t.Fatalf("expected no checkpoint returned when not recovered")
	}

	cp, err := db.GetSessionCheckpoint("s1")
	if err != nil {
		t.Fatalf("get checkpoint failed: %v", err)
	}
	if cp.Status != database.SessionStatusActive {
		t.Fatalf("expected status left untouched as active, got %s", cp.Status)
	}
}

func TestRecoverUnknownSessionIsNoop(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)

	result, err := mgr.Recover("does-not-exist")
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if result.Recovered {
		t.Fatalf("expected Recovered=false for an unknown session")
	}
}

func TestCompleteMarksSessionDone(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)
	_ = mgr.Save(CheckpointInput{SessionID: "s1"})

	if err := mgr.Complete("s1"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	cp, err := db.GetSessionCheckpoint("s1")
	if err != nil {
		t.Fatalf("get checkpoint failed: %v", err)
	}
	if cp.Status != database.SessionStatusCompleted {
		t.Fatalf("expected completed status, got %s", cp.Status)
	}
}

func TestCheckpointWritesContinueSessionFile(t *testing.T) {
	db := newTestDB(t)
	mgr := New(db)
	dir := t.TempDir()

	err := mgr.Checkpoint(CheckpointInput{
		SessionID:      "s1",
		SpecFolder:     "001-example",
		CurrentTask:    "implement gate",
		LastAction:     "wrote gate.go",
		ContextSummary: "building the PE gate",
		PendingWork:    "write tests",
	}, dir)
	if err != nil {
		t.Fatalf("checkpoint failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "CONTINUE_SESSION.md"))
	if err != nil {
		t.Fatalf("failed to read CONTINUE_SESSION.md: %v", err)
	}
	text := string(content)
	for _, section := range []string{
		"# CONTINUE SESSION",
		"## Session State",
		"## Context Summary",
		"## Pending Work",
		"## Quick Resume",
		"## Additional State Data",
	} {
		if !strings.Contains(text, section) {
			t.Fatalf("expected section %q in CONTINUE_SESSION.md", section)
		}
	}
}
