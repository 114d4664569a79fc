// Package session implements the crash-recoverable session layer: per-
// session memory dedup (so the same memory is never pushed to an agent
// twice in one session) and checkpointed session state that survives a
// process crash, recoverable on the next process start. This sits
// alongside, and is distinct from, internal/memory's git-directory session
// ID detector: that package answers "which session am I," this package
// answers "what has this session already seen and where did it leave off."
// Grounded on internal/database/operations_source.go's service-over-store
// wrapper shape.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("session")

// DefaultSentTTL and DefaultMaxSentEntries bound the per-session dedup set.
const (
	DefaultSentTTL        = 24 * time.Hour
	DefaultMaxSentEntries = 5000
)

// Manager wraps the session_checkpoints/session_sent tables with the
// dedup and crash-recovery operations spec(4.12) names.
type Manager struct {
	db            *database.Database
	sentTTL       time.Duration
	maxSentEntries int
}

// New constructs a Manager with the default TTL/max-entries eviction
// policy.
func New(db *database.Database) *Manager {
	return &Manager{db: db, sentTTL: DefaultSentTTL, maxSentEntries: DefaultMaxSentEntries}
}

// ShouldSend reports whether m has not yet been sent in sessionID.
func (mgr *Manager) ShouldSend(sessionID string, m *database.Memory) (bool, error) {
	sent, err := mgr.db.HasSentMemory(sessionID, database.MemoryHash(m))
	if err != nil {
		return false, err
	}
	return !sent, nil
}

// MarkSent records m as sent in sessionID, running eviction opportunistically.
func (mgr *Manager) MarkSent(sessionID string, m *database.Memory) error {
	if err := mgr.db.MarkMemorySent(sessionID, database.MemoryHash(m)); err != nil {
		return err
	}
	if err := mgr.db.EvictExpiredSent(mgr.sentTTL, mgr.maxSentEntries); err != nil {
		log.Error("failed to evict expired session_sent entries", "error", err)
	}
	return nil
}

// Filter returns the subset of memories not yet sent in sessionID, and
// marks each returned memory as sent. This is the single call sites should
// use: it combines ShouldSend + MarkSent so agents never have to remember
// the two-step protocol.
func (mgr *Manager) Filter(sessionID string, memories []*database.Memory) ([]*database.Memory, error) {
	out := make([]*database.Memory, 0, len(memories))
	for _, m := range memories {
		ok, err := mgr.ShouldSend(sessionID, m)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, m)
		if err := mgr.MarkSent(sessionID, m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CheckpointInput is the state persisted by Checkpoint/Save.
type CheckpointInput struct {
	SessionID      string
	SpecFolder     string
	CurrentTask    string
	LastAction     string
	ContextSummary string
	PendingWork    string
}

// Save persists session state as active, without emitting CONTINUE_SESSION.md.
func (mgr *Manager) Save(in CheckpointInput) error {
	return mgr.db.SaveSessionCheckpoint(&database.SessionCheckpoint{
		SessionID:      in.SessionID,
		Status:         database.SessionStatusActive,
		SpecFolder:     in.SpecFolder,
		CurrentTask:    in.CurrentTask,
		LastAction:     in.LastAction,
		ContextSummary: in.ContextSummary,
		PendingWork:    in.PendingWork,
	})
}

// Complete marks sessionID as cleanly finished.
func (mgr *Manager) Complete(sessionID string) error {
	return mgr.db.CompleteSession(sessionID)
}

// ResetInterrupted marks every session left "active" (i.e. the process
// died before calling Complete) as interrupted. Call once at startup.
func (mgr *Manager) ResetInterrupted() (int64, error) {
	return mgr.db.ResetInterruptedSessions()
}

// ListInterrupted returns sessions awaiting recovery.
func (mgr *Manager) ListInterrupted() ([]*database.SessionCheckpoint, error) {
	return mgr.db.ListInterruptedSessions()
}

// RecoverResult reports whether Recover actually reactivated a session.
// Recovered is true iff sessionID's stored checkpoint was found and was
// interrupted; Checkpoint is nil whenever Recovered is false.
type RecoverResult struct {
	Checkpoint *database.SessionCheckpoint
	Recovered  bool
}

// Recover loads sessionID's checkpoint and, iff it was interrupted, re-marks
// it active and returns it with Recovered=true. A non-existent session or
// one that is not interrupted (already active or completed) is left
// untouched and returns Recovered=false.
func (mgr *Manager) Recover(sessionID string) (*RecoverResult, error) {
	cp, err := mgr.db.GetSessionCheckpoint(sessionID)
	if err != nil {
		return nil, err
	}
	if cp == nil || cp.Status != database.SessionStatusInterrupted {
		return &RecoverResult{Recovered: false}, nil
	}
	if err := mgr.db.SaveSessionCheckpoint(&database.SessionCheckpoint{
		SessionID:      cp.SessionID,
		Status:         database.SessionStatusActive,
		SpecFolder:     cp.SpecFolder,
		CurrentTask:    cp.CurrentTask,
		LastAction:     cp.LastAction,
		ContextSummary: cp.ContextSummary,
		PendingWork:    cp.PendingWork,
	}); err != nil {
		return nil, err
	}
	cp.Status = database.SessionStatusActive
	return &RecoverResult{Checkpoint: cp, Recovered: true}, nil
}

// Checkpoint saves session state and emits a CONTINUE_SESSION.md file at
// dir (fixed Markdown section layout) so a human or a freshly started agent
// can resume without re-reading the database directly.
func (mgr *Manager) Checkpoint(in CheckpointInput, dir string) error {
	if err := mgr.Save(in); err != nil {
		return err
	}
	return writeContinueSessionFile(in, dir)
}

func writeContinueSessionFile(in CheckpointInput, dir string) error {
	var b strings.Builder

	b.WriteString("# CONTINUE SESSION\n\n")

	b.WriteString("## Session State\n\n")
	fmt.Fprintf(&b, "- Session ID: %s\n", in.SessionID)
	if in.SpecFolder != "" {
		fmt.Fprintf(&b, "- Spec folder: %s\n", in.SpecFolder)
	}
	fmt.Fprintf(&b, "- Status: active\n")
	fmt.Fprintf(&b, "- Checkpointed at: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Context Summary\n\n")
	if in.ContextSummary != "" {
		b.WriteString(in.ContextSummary)
	} else {
		b.WriteString("(no summary recorded)")
	}
	b.WriteString("\n\n")

	b.WriteString("## Pending Work\n\n")
	if in.PendingWork != "" {
		b.WriteString(in.PendingWork)
	} else {
		b.WriteString("(nothing pending)")
	}
	b.WriteString("\n\n")

	b.WriteString("## Quick Resume\n\n")
	if in.LastAction != "" {
		fmt.Fprintf(&b, "Last action: %s\n", in.LastAction)
	}
	if in.CurrentTask != "" {
		fmt.Fprintf(&b, "Current task: %s\n", in.CurrentTask)
	}
	b.WriteString("\n")

	b.WriteString("## Additional State Data\n\n")
	b.WriteString("(none)\n")

	path := filepath.Join(dir, "CONTINUE_SESSION.md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write CONTINUE_SESSION.md: %w", err)
	}
	log.Info("wrote session checkpoint file", "path", path, "session_id", in.SessionID)
	return nil
}
