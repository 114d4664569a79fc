package engine

import "fmt"

// LastState implements orchestrator.SessionResumer. It reads the most
// recent checkpoint without mutating it, unlike session.Manager.Recover
// (which re-marks the session active as a side effect of resuming work) --
// ModeResume is a read-only preview, so this goes straight to the store.
func (e *Engine) LastState(sessionID string) (summary string, pendingWork string, err error) {
	cp, err := e.db.GetSessionCheckpoint(sessionID)
	if err != nil {
		return "", "", fmt.Errorf("engine: failed to load checkpoint for %s: %w", sessionID, err)
	}
	if cp == nil {
		return "", "", fmt.Errorf("engine: no checkpoint found for session %s", sessionID)
	}
	return cp.ContextSummary, cp.PendingWork, nil
}
