package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CORRECTIONS LEDGER OPERATIONS (C11)
// Style follows operations_source.go: d.mu guarded, uuid.New() ids, nullable
// helpers, wrapped errors.
// =============================================================================

// RecordCorrection inserts a new ledger entry. The caller is responsible for
// having already applied the stability penalty/boost to the memories
// themselves (via UpdateMemoryStability); this call only persists the audit
// trail and snapshot needed for UndoCorrection.
//
// A correction against itself, or against an original memory that does not
// exist, is rejected.
func (d *Database) RecordCorrection(c *Correction) error {
	if c.OriginalMemoryID == "" {
		return fmt.Errorf("corrections: original_memory_id is required")
	}
	if c.ReplacementMemoryID != "" && c.ReplacementMemoryID == c.OriginalMemoryID {
		return fmt.Errorf("corrections: a memory cannot correct itself")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var exists int
	if err := d.db.QueryRow(`SELECT COUNT(1) FROM memories WHERE id = ?`, c.OriginalMemoryID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to verify original memory: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("corrections: original memory %s does not exist", c.OriginalMemoryID)
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := d.db.Exec(`
		INSERT INTO corrections (
			id, original_memory_id, replacement_memory_id, correction_type,
			original_stability_before, original_stability_after,
			replacement_stability_before, replacement_stability_after,
			reason, actor, created_at, is_undone
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`,
		c.ID, c.OriginalMemoryID, nullString(c.ReplacementMemoryID), string(c.CorrectionType),
		c.OriginalStabilityBefore, c.OriginalStabilityAfter,
		nullFloatPtr(c.ReplacementStabilityBefore), nullFloatPtr(c.ReplacementStabilityAfter),
		nullString(c.Reason), nullString(c.Actor), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	log.Info("recorded correction", "id", c.ID, "type", c.CorrectionType, "original", c.OriginalMemoryID)
	return nil
}

// RecordCorrectionEdge inserts a causal graph edge for a correction. Callers
// must gate this behind the relations feature flag; the database layer
// itself does not know about configuration.
func (d *Database) RecordCorrectionEdge(e *CorrectionEdge) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := d.db.Exec(`
		INSERT INTO correction_edges (id, correction_id, edge_type, from_memory_id, to_memory_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.CorrectionID, e.EdgeType, e.FromMemoryID, e.ToMemoryID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record correction edge: %w", err)
	}
	return nil
}

// GetCorrection retrieves a single correction by id.
func (d *Database) GetCorrection(id string) (*Correction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scanCorrection(d.db.QueryRow(`
		SELECT id, original_memory_id, replacement_memory_id, correction_type,
		       original_stability_before, original_stability_after,
		       replacement_stability_before, replacement_stability_after,
		       reason, actor, created_at, is_undone, undone_at
		FROM corrections WHERE id = ?
	`, id))
}

func (d *Database) scanCorrection(row *sql.Row) (*Correction, error) {
	var c Correction
	var replacementID, reason, actor sql.NullString
	var replBefore, replAfter sql.NullFloat64
	var undoneAt sql.NullTime
	var correctionType string

	err := row.Scan(
		&c.ID, &c.OriginalMemoryID, &replacementID, &correctionType,
		&c.OriginalStabilityBefore, &c.OriginalStabilityAfter,
		&replBefore, &replAfter, &reason, &actor, &c.CreatedAt, &c.IsUndone, &undoneAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan correction: %w", err)
	}

	c.CorrectionType = CorrectionType(correctionType)
	c.ReplacementMemoryID = replacementID.String
	c.Reason = reason.String
	c.Actor = actor.String
	if replBefore.Valid {
		v := replBefore.Float64
		c.ReplacementStabilityBefore = &v
	}
	if replAfter.Valid {
		v := replAfter.Float64
		c.ReplacementStabilityAfter = &v
	}
	if undoneAt.Valid {
		c.UndoneAt = &undoneAt.Time
	}
	return &c, nil
}

// GetCorrectionChain returns every correction whose original memory id is a
// member of the chain rooted at startID, oldest first within each member. The chain follows replacement_memory_id forward so a caller can
// reconstruct "A superseded by B superseded by C".
func (d *Database) GetCorrectionChain(startID string) ([]*Correction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var chain []*Correction
	currentID := startID
	visited := map[string]bool{}

	for currentID != "" && !visited[currentID] {
		visited[currentID] = true

		rows, err := d.db.Query(`
			SELECT id, original_memory_id, replacement_memory_id, correction_type,
			       original_stability_before, original_stability_after,
			       replacement_stability_before, replacement_stability_after,
			       reason, actor, created_at, is_undone, undone_at
			FROM corrections WHERE original_memory_id = ?
			ORDER BY created_at ASC
		`, currentID)
		if err != nil {
			return nil, fmt.Errorf("failed to query correction chain: %w", err)
		}

		var next string
		for rows.Next() {
			var c Correction
			var replacementID, reason, actor sql.NullString
			var replBefore, replAfter sql.NullFloat64
			var undoneAt sql.NullTime
			var correctionType string

			if err := rows.Scan(
				&c.ID, &c.OriginalMemoryID, &replacementID, &correctionType,
				&c.OriginalStabilityBefore, &c.OriginalStabilityAfter,
				&replBefore, &replAfter, &reason, &actor, &c.CreatedAt, &c.IsUndone, &undoneAt,
			); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan correction chain row: %w", err)
			}
			c.CorrectionType = CorrectionType(correctionType)
			c.ReplacementMemoryID = replacementID.String
			c.Reason = reason.String
			c.Actor = actor.String
			if replBefore.Valid {
				v := replBefore.Float64
				c.ReplacementStabilityBefore = &v
			}
			if replAfter.Valid {
				v := replAfter.Float64
				c.ReplacementStabilityAfter = &v
			}
			if undoneAt.Valid {
				c.UndoneAt = &undoneAt.Time
			}
			chain = append(chain, &c)
			if !c.IsUndone && c.ReplacementMemoryID != "" {
				next = c.ReplacementMemoryID
			}
		}
		rows.Close()
		currentID = next
	}

	return chain, nil
}

// UndoCorrection marks a correction as undone. It does not itself restore
// memory content or stability; callers apply the before-snapshot back onto
// the memory row and then call this to close out the ledger entry. The
// correction's causal edges are deleted along with it.
// Attempting to undo an already-undone correction is rejected: undo is
// irreversible.
func (d *Database) UndoCorrection(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var isUndone bool
	if err := d.db.QueryRow(`SELECT is_undone FROM corrections WHERE id = ?`, id).Scan(&isUndone); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("corrections: correction %s does not exist", id)
		}
		return fmt.Errorf("failed to check correction: %w", err)
	}
	if isUndone {
		return fmt.Errorf("corrections: correction %s has already been undone", id)
	}

	_, err := d.db.Exec(`
		UPDATE corrections SET is_undone = 1, undone_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to undo correction: %w", err)
	}

	if _, err := d.db.Exec(`DELETE FROM correction_edges WHERE correction_id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove correction edges: %w", err)
	}

	log.Info("undid correction", "id", id)
	return nil
}

// GetCorrectionsStats summarizes the ledger's contents.
func (d *Database) GetCorrectionsStats() (*CorrectionStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := &CorrectionStats{ByType: make(map[CorrectionType]int)}

	rows, err := d.db.Query(`SELECT correction_type, COUNT(1) FROM corrections GROUP BY correction_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query correction stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		var count int
		if err := rows.Scan(&t, &count); err != nil {
			return nil, fmt.Errorf("failed to scan correction stats: %w", err)
		}
		stats.ByType[CorrectionType(t)] = count
		stats.TotalCorrections += count
	}

	if err := d.db.QueryRow(`SELECT COUNT(1) FROM corrections WHERE is_undone = 1`).Scan(&stats.UndoneCount); err != nil {
		return nil, fmt.Errorf("failed to query undone count: %w", err)
	}

	return stats, nil
}

// =============================================================================
// CONFLICT LOG OPERATIONS (C10 telemetry)
// =============================================================================

// RecordConflict appends one entry to the prediction-error gate's conflict
// log.
func (d *Database) RecordConflict(c *Conflict) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := d.db.Exec(`
		INSERT INTO conflicts (id, new_content_hash, existing_memory_id, similarity_score, action, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.NewContentHash, nullString(c.ExistingMemoryID), c.SimilarityScore, c.Action, nullString(c.Notes), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record conflict: %w", err)
	}
	return nil
}

// ListRecentConflicts returns the most recent conflict log entries, newest
// first, bounded by limit.
func (d *Database) ListRecentConflicts(limit int) ([]*Conflict, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.Query(`
		SELECT id, new_content_hash, existing_memory_id, similarity_score, action, notes, created_at
		FROM conflicts ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	var out []*Conflict
	for rows.Next() {
		var c Conflict
		var existingID, notes sql.NullString
		if err := rows.Scan(&c.ID, &c.NewContentHash, &existingID, &c.SimilarityScore, &c.Action, &notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}
		c.ExistingMemoryID = existingID.String
		c.Notes = notes.String
		out = append(out, &c)
	}
	return out, nil
}

func nullFloatPtr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// =============================================================================
// FSRS FIELD ACCESSORS
// Narrow helpers for the stability/difficulty columns added in migration v3,
// used by the corrections ledger and the prediction-error gate without
// requiring a full CreateMemory/GetMemory column-list rewrite.
// =============================================================================

// GetMemoryStability returns a memory's current stability and content, or
// sql.ErrNoRows if it does not exist.
func (d *Database) GetMemoryStability(id string) (stability float64, content string, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRow(`SELECT stability, content FROM memories WHERE id = ?`, id).Scan(&stability, &content)
	if err != nil {
		return 0, "", err
	}
	return stability, content, nil
}

// UpdateMemoryStability persists a new stability value (and bumps
// review_count), leaving all other columns untouched.
func (d *Database) UpdateMemoryStability(id string, stability float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.db.Exec(`
		UPDATE memories
		SET stability = ?, review_count = review_count + 1, last_review = ?, updated_at = ?
		WHERE id = ?
	`, stability, time.Now(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update memory stability: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return nil
}

// StrengthenMemory is the atomic persistence half of C9's
// strengthen_on_access: one transaction that bumps stability, difficulty,
// review_count, last_review and the access telemetry columns together, so
// a reader never observes the FSRS state and the access counters out of
// sync with each other.
func (d *Database) StrengthenMemory(id string, stability, difficulty float64, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE memories
		SET stability = ?, difficulty = ?, review_count = review_count + 1,
		    last_review = ?, access_count_fsrs = access_count_fsrs + 1,
		    last_accessed_fsrs = ?, updated_at = ?
		WHERE id = ?
	`, stability, difficulty, at, at, at, id)
	if err != nil {
		return fmt.Errorf("failed to strengthen memory: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return tx.Commit()
}

// RecordCitation stamps last_cited, used by the citation factor of the
// composite scorer whenever a memory is surfaced to a caller as a cited
// source (distinct from a plain access/strengthen event).
func (d *Database) RecordCitation(id string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`UPDATE memories SET last_cited = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to record citation: %w", err)
	}
	return nil
}
