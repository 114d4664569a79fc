package corrections

import (
	"path/filepath"
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

func mustCreateMemory(t *testing.T, db *database.Database, content string) string {
	t.Helper()
	m := &database.Memory{Content: content, Stability: 10.0}
	if err := db.CreateMemory(m); err != nil {
		t.Fatalf("failed to create memory: %v", err)
	}
	if err := db.UpdateMemoryStability(m.ID, 10.0); err != nil {
		t.Fatalf("failed to seed stability: %v", err)
	}
	return m.ID
}

func TestDeprecateSkippedWithoutSideEffectsWhenRelationsDisabled(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, false)

	id := mustCreateMemory(t, db, "old guidance")
	res, err := svc.Deprecate(id, "superseded by new policy", "tester")
	if err != nil {
		t.Fatalf("deprecate failed: %v", err)
	}
	if !res.Skipped {
		t.Fatalf("expected Skipped=true when relations disabled")
	}
	if res.Correction != nil {
		t.Fatalf("expected no correction to be recorded when relations disabled")
	}

	stability, _, err := db.GetMemoryStability(id)
	if err != nil {
		t.Fatalf("failed to read stability: %v", err)
	}
	if stability != 10.0 {
		t.Fatalf("expected stability untouched at 10.0, got %v", stability)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalCorrections != 0 {
		t.Fatalf("expected no ledger rows written when relations disabled, got %d", stats.TotalCorrections)
	}
}

func TestDeprecateAppliesPenaltyWhenRelationsEnabled(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, true)

	id := mustCreateMemory(t, db, "old guidance")
	res, err := svc.Deprecate(id, "superseded by new policy", "tester")
	if err != nil {
		t.Fatalf("deprecate failed: %v", err)
	}
	if res.Skipped {
		t.Fatalf("expected Skipped=false when relations enabled")
	}

	stability, _, err := db.GetMemoryStability(id)
	if err != nil {
		t.Fatalf("failed to read stability: %v", err)
	}
	if stability != 5.0 {
		t.Fatalf("expected stability penalized to 5.0, got %v", stability)
	}
}

func TestSupersedeBoostsReplacementAndEmitsEdgeWhenEnabled(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, true)

	oldID := mustCreateMemory(t, db, "always use tabs")
	newID := mustCreateMemory(t, db, "always use spaces")

	res, err := svc.Supersede(oldID, newID, "contradicts new style guide", "gate")
	if err != nil {
		t.Fatalf("supersede failed: %v", err)
	}
	if res.Skipped {
		t.Fatalf("expected Skipped=false when relations enabled")
	}

	replStability, _, err := db.GetMemoryStability(newID)
	if err != nil {
		t.Fatalf("failed to read replacement stability: %v", err)
	}
	if replStability != 12.0 {
		t.Fatalf("expected replacement stability boosted to 12.0, got %v", replStability)
	}
}

func TestSelfCorrectionRejected(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, false)
	id := mustCreateMemory(t, db, "content")

	if _, err := svc.RecordCorrection(id, id, database.CorrectionSuperseded, "x", "tester"); err == nil {
		t.Fatalf("expected error for self-correction")
	}
}

func TestMissingOriginalRejected(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, true)

	if _, err := svc.RecordCorrection("does-not-exist", "", database.CorrectionDeprecated, "x", "tester"); err == nil {
		t.Fatalf("expected error for missing original memory")
	}
}

func TestUndoRestoresSnapshotAndIsIrreversible(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, true)

	oldID := mustCreateMemory(t, db, "old")
	newID := mustCreateMemory(t, db, "new")

	res, err := svc.Refine(oldID, newID, "clarified wording", "tester")
	if err != nil {
		t.Fatalf("refine failed: %v", err)
	}

	if err := svc.Undo(res.Correction.ID); err != nil {
		t.Fatalf("undo failed: %v", err)
	}

	stability, _, err := db.GetMemoryStability(oldID)
	if err != nil {
		t.Fatalf("failed to read stability: %v", err)
	}
	if stability != 10.0 {
		t.Fatalf("expected original stability restored to 10.0, got %v", stability)
	}

	if err := svc.Undo(res.Correction.ID); err == nil {
		t.Fatalf("expected second undo to be rejected")
	}
}

func TestCorrectionChainFollowsReplacements(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, true)

	a := mustCreateMemory(t, db, "v1")
	b := mustCreateMemory(t, db, "v2")
	c := mustCreateMemory(t, db, "v3")

	if _, err := svc.Refine(a, b, "step 1", "tester"); err != nil {
		t.Fatalf("refine a->b failed: %v", err)
	}
	if _, err := svc.Refine(b, c, "step 2", "tester"); err != nil {
		t.Fatalf("refine b->c failed: %v", err)
	}

	chain, err := svc.Chain(a)
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected chain of 2 corrections, got %d", len(chain))
	}
}

func TestStatsCountsByType(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, true)

	id := mustCreateMemory(t, db, "content")
	if _, err := svc.Deprecate(id, "done", "tester"); err != nil {
		t.Fatalf("deprecate failed: %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalCorrections != 1 {
		t.Fatalf("expected 1 total correction, got %d", stats.TotalCorrections)
	}
	if stats.ByType[database.CorrectionDeprecated] != 1 {
		t.Fatalf("expected 1 deprecated correction, got %d", stats.ByType[database.CorrectionDeprecated])
	}
}
