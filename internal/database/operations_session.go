package database

import (
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// SESSION CHECKPOINT + DEDUP OPERATIONS (C12)
// Style follows operations_source.go.
// =============================================================================

// SessionCheckpoint mirrors the session_checkpoints table.
type SessionCheckpoint struct {
	SessionID      string
	Status         string // active, completed, interrupted
	SpecFolder     string
	CurrentTask    string
	LastAction     string
	ContextSummary string
	PendingWork    string
	ExtraData      string // JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const (
	SessionStatusActive      = "active"
	SessionStatusCompleted   = "completed"
	SessionStatusInterrupted = "interrupted"
)

// SaveSessionCheckpoint upserts a session's checkpoint row.
func (d *Database) SaveSessionCheckpoint(c *SessionCheckpoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.Status == "" {
		c.Status = SessionStatusActive
	}
	if c.ExtraData == "" {
		c.ExtraData = "{}"
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := d.db.Exec(`
		INSERT INTO session_checkpoints (
			session_id, status, spec_folder, current_task, last_action,
			context_summary, pending_work, extra_data, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			spec_folder = excluded.spec_folder,
			current_task = excluded.current_task,
			last_action = excluded.last_action,
			context_summary = excluded.context_summary,
			pending_work = excluded.pending_work,
			extra_data = excluded.extra_data,
			updated_at = excluded.updated_at
	`,
		c.SessionID, c.Status, nullString(c.SpecFolder), nullString(c.CurrentTask), nullString(c.LastAction),
		nullString(c.ContextSummary), nullString(c.PendingWork), c.ExtraData, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session checkpoint: %w", err)
	}
	return nil
}

// GetSessionCheckpoint retrieves one session's checkpoint, or nil if none
// exists.
func (d *Database) GetSessionCheckpoint(sessionID string) (*SessionCheckpoint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var c SessionCheckpoint
	var specFolder, currentTask, lastAction, contextSummary, pendingWork sql.NullString

	err := d.db.QueryRow(`
		SELECT session_id, status, spec_folder, current_task, last_action,
		       context_summary, pending_work, extra_data, created_at, updated_at
		FROM session_checkpoints WHERE session_id = ?
	`, sessionID).Scan(
		&c.SessionID, &c.Status, &specFolder, &currentTask, &lastAction,
		&contextSummary, &pendingWork, &c.ExtraData, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session checkpoint: %w", err)
	}

	c.SpecFolder = specFolder.String
	c.CurrentTask = currentTask.String
	c.LastAction = lastAction.String
	c.ContextSummary = contextSummary.String
	c.PendingWork = pendingWork.String
	return &c, nil
}

// CompleteSession marks a session's checkpoint as completed.
func (d *Database) CompleteSession(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.db.Exec(`
		UPDATE session_checkpoints SET status = ?, updated_at = ? WHERE session_id = ?
	`, SessionStatusCompleted, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session checkpoint not found: %s", sessionID)
	}
	return nil
}

// ResetInterruptedSessions marks every currently-active session as
// interrupted; called once at process startup to recover from a prior
// crash.
func (d *Database) ResetInterruptedSessions() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.db.Exec(`
		UPDATE session_checkpoints SET status = ?, updated_at = ? WHERE status = ?
	`, SessionStatusInterrupted, time.Now(), SessionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to reset interrupted sessions: %w", err)
	}
	return result.RowsAffected()
}

// ListInterruptedSessions returns every session currently marked
// interrupted, most recently updated first.
func (d *Database) ListInterruptedSessions() ([]*SessionCheckpoint, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`
		SELECT session_id, status, spec_folder, current_task, last_action,
		       context_summary, pending_work, extra_data, created_at, updated_at
		FROM session_checkpoints WHERE status = ? ORDER BY updated_at DESC
	`, SessionStatusInterrupted)
	if err != nil {
		return nil, fmt.Errorf("failed to list interrupted sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionCheckpoint
	for rows.Next() {
		var c SessionCheckpoint
		var specFolder, currentTask, lastAction, contextSummary, pendingWork sql.NullString
		if err := rows.Scan(
			&c.SessionID, &c.Status, &specFolder, &currentTask, &lastAction,
			&contextSummary, &pendingWork, &c.ExtraData, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session checkpoint: %w", err)
		}
		c.SpecFolder = specFolder.String
		c.CurrentTask = currentTask.String
		c.LastAction = lastAction.String
		c.ContextSummary = contextSummary.String
		c.PendingWork = pendingWork.String
		out = append(out, &c)
	}
	return out, nil
}

// =============================================================================
// SESSION DEDUP (session_sent)
// =============================================================================

// HasSentMemory reports whether memoryHash has already been sent in
// sessionID.
func (d *Database) HasSentMemory(sessionID, memoryHash string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(1) FROM session_sent WHERE session_id = ? AND memory_hash = ?
	`, sessionID, memoryHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check session_sent: %w", err)
	}
	return count > 0, nil
}

// MarkMemorySent records that memoryHash has been sent in sessionID.
// Re-marking an already-sent hash only refreshes its sent_at.
func (d *Database) MarkMemorySent(sessionID, memoryHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO session_sent (session_id, memory_hash, sent_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id, memory_hash) DO UPDATE SET sent_at = excluded.sent_at
	`, sessionID, memoryHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark memory sent: %w", err)
	}
	return nil
}

// EvictExpiredSent deletes session_sent rows older than ttl, and (if
// maxEntries > 0) the oldest rows beyond maxEntries for each session. This
// bounds unbounded growth of the per-session dedup set.
func (d *Database) EvictExpiredSent(ttl time.Duration, maxEntries int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	if _, err := d.db.Exec(`DELETE FROM session_sent WHERE sent_at < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to evict expired session_sent rows: %w", err)
	}

	if maxEntries <= 0 {
		return nil
	}

	_, err := d.db.Exec(`
		DELETE FROM session_sent
		WHERE (session_id, memory_hash) IN (
			SELECT session_id, memory_hash FROM (
				SELECT session_id, memory_hash,
				       ROW_NUMBER() OVER (PARTITION BY session_id ORDER BY sent_at DESC) AS rn
				FROM session_sent
			) WHERE rn > ?
		)
	`, maxEntries)
	if err != nil {
		return fmt.Errorf("failed to evict oversized session_sent set: %w", err)
	}
	return nil
}
