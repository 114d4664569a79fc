package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/pkg/config"
)

func newTestEngine(t *testing.T) *Engine {
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

	cfg := config.DefaultConfig()
	cfg.Relations.Enabled = true
	return New(db, cfg)
}

func TestRememberCreatesNewMemory(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Remember(context.Background(), RememberInput{
		Content: "the deploy pipeline retries three times before paging oncall",
	})
	if err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if result.Memory == nil {
		t.Fatal("expected a stored memory")
	}
	if result.Decision.Action != "CREATE" {
		t.Fatalf("expected CREATE for a novel memory, got %s", result.Decision.Action)
	}
}

func TestRememberRejectsEmptyContent(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Remember(context.Background(), RememberInput{}); err == nil {
		t.Fatal("expected an error for empty content")
	}
}

func TestRememberHandlesRepeatedContentWithoutError(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	content := "ci pipeline retries failed jobs up to three times before alerting"
	if _, err := e.Remember(ctx, RememberInput{Content: content}); err != nil {
		t.Fatalf("first Remember failed: %v", err)
	}

	second, err := e.Remember(ctx, RememberInput{Content: content})
	if err != nil {
		t.Fatalf("second Remember failed: %v", err)
	}
	if second.Decision.Action != "REINFORCE" && second.Memory == nil {
		t.Fatal("expected either a reinforced existing memory or a newly created one")
	}
}

func TestQuickReturnsKeywordMatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Remember(ctx, RememberInput{Content: "redis connection pool size defaults to ten"}); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}

	items, err := e.Quick("", "redis connection pool")
	if err != nil {
		t.Fatalf("Quick failed: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected at least one keyword match")
	}
}

func TestLastStateErrorsWithoutCheckpoint(t *testing.T) {
	e := newTestEngine(t)
	if _, _, err := e.LastState("no-such-session"); err == nil {
		t.Fatal("expected an error when no checkpoint exists")
	}
}

func TestSessionsCorrectionsRelationshipsExposed(t *testing.T) {
	e := newTestEngine(t)
	if e.Sessions() == nil {
		t.Error("expected a non-nil session manager")
	}
	if e.Corrections() == nil {
		t.Error("expected a non-nil corrections service")
	}
	if e.Relationships() == nil {
		t.Error("expected a non-nil relationships service")
	}
}
