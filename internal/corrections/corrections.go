// Package corrections implements the corrections ledger: recording that one
// memory deprecates, refines, merges into, or is superseded by another, with
// a full before/after stability snapshot so the operation can be undone.
// Grounded on internal/database/operations_source.go's service-layer-over-
// store wrapper shape (validate, mutate, persist, log) and internal/gate for
// the SUPERSEDE trigger this package is the callee of.
package corrections

import (
	"fmt"

	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("corrections")

// Stability adjustment constants applied by RecordCorrection.
const (
	OriginalStabilityPenalty  = 0.5 // original.stability *= this
	ReplacementStabilityBoost = 1.2 // replacement.stability *= this
)

// Service wraps the corrections ledger store with the stability-penalty
// business rule and the ENABLE_RELATIONS feature gate.
type Service struct {
	db              *database.Database
	relationsEnabled bool
}

// New constructs a corrections Service. relationsEnabled mirrors
// config.RelationsConfig.Enabled (the ENABLE_RELATIONS / SPECKIT_RELATIONS
// toggle); when false, RecordCorrection and its Deprecate/Refine/Merge/
// Supersede wrappers return Skipped=true without touching stability or the
// ledger (the empty-id and self-correction checks still run first). Undo,
// Chain and Stats are not gated by the flag and run either way.
func New(db *database.Database, relationsEnabled bool) *Service {
	return &Service{db: db, relationsEnabled: relationsEnabled}
}

// Result is the outcome of a correction operation.
type Result struct {
	Correction *database.Correction
	Skipped    bool
}

// RecordCorrection is the shared implementation behind Deprecate, Refine,
// Merge, and Supersede: it loads both memories' current stability, applies
// the fixed penalty/boost, persists the new stability, and appends a ledger
// entry carrying the before/after snapshot.
//
// A correction is rejected when originalID == replacementID (self-
// correction) or when the original memory does not exist.
func (s *Service) RecordCorrection(originalID, replacementID string, correctionType database.CorrectionType, reason, actor string) (*Result, error) {
	if originalID == "" {
		return nil, fmt.Errorf("corrections: original memory id is required")
	}
	if replacementID != "" && replacementID == originalID {
		return nil, fmt.Errorf("corrections: a memory cannot correct itself")
	}

	if !s.relationsEnabled {
		log.Debug("relations disabled, skipping correction", "original", originalID, "replacement", replacementID)
		return &Result{Skipped: true}, nil
	}

	origStabilityBefore, _, err := s.db.GetMemoryStability(originalID)
	if err != nil {
		return nil, fmt.Errorf("corrections: original memory %s not found: %w", originalID, err)
	}
	origStabilityAfter := origStabilityBefore * OriginalStabilityPenalty
	if err := s.db.UpdateMemoryStability(originalID, origStabilityAfter); err != nil {
		return nil, fmt.Errorf("failed to penalize original memory: %w", err)
	}

	c := &database.Correction{
		OriginalMemoryID:        originalID,
		ReplacementMemoryID:     replacementID,
		CorrectionType:          correctionType,
		OriginalStabilityBefore: origStabilityBefore,
		OriginalStabilityAfter:  origStabilityAfter,
		Reason:                  reason,
		Actor:                   actor,
	}

	if replacementID != "" {
		replBefore, _, err := s.db.GetMemoryStability(replacementID)
		if err != nil {
			return nil, fmt.Errorf("corrections: replacement memory %s not found: %w", replacementID, err)
		}
		replAfter := replBefore * ReplacementStabilityBoost
		if err := s.db.UpdateMemoryStability(replacementID, replAfter); err != nil {
			return nil, fmt.Errorf("failed to boost replacement memory: %w", err)
		}
		c.ReplacementStabilityBefore = &replBefore
		c.ReplacementStabilityAfter = &replAfter
	}

	if err := s.db.RecordCorrection(c); err != nil {
		return nil, err
	}

	if replacementID != "" {
		edge := &database.CorrectionEdge{
			CorrectionID: c.ID,
			EdgeType:     string(correctionType),
			FromMemoryID: replacementID,
			ToMemoryID:   originalID,
		}
		if err := s.db.RecordCorrectionEdge(edge); err != nil {
			log.Error("failed to record correction edge", "error", err, "correction", c.ID)
		}
	}

	log.Info("recorded correction", "type", correctionType, "original", originalID, "replacement", replacementID)
	return &Result{Correction: c}, nil
}

// Deprecate marks originalID as deprecated with no replacement.
func (s *Service) Deprecate(originalID, reason, actor string) (*Result, error) {
	return s.RecordCorrection(originalID, "", database.CorrectionDeprecated, reason, actor)
}

// Refine records replacementID as a refined version of originalID.
func (s *Service) Refine(originalID, replacementID, reason, actor string) (*Result, error) {
	return s.RecordCorrection(originalID, replacementID, database.CorrectionRefined, reason, actor)
}

// Merge records originalID as merged into replacementID.
func (s *Service) Merge(originalID, replacementID, reason, actor string) (*Result, error) {
	return s.RecordCorrection(originalID, replacementID, database.CorrectionMerged, reason, actor)
}

// Supersede records replacementID as superseding originalID, typically
// triggered by gate.ActionSupersede.
func (s *Service) Supersede(originalID, replacementID, reason, actor string) (*Result, error) {
	return s.RecordCorrection(originalID, replacementID, database.CorrectionSuperseded, reason, actor)
}

// Undo restores both memories' stability from the correction's snapshot and
// marks the ledger entry as undone. Undoing an already-undone correction is
// rejected; undo is a one-way door once performed.
func (s *Service) Undo(correctionID string) error {
	c, err := s.db.GetCorrection(correctionID)
	if err != nil {
		return fmt.Errorf("failed to load correction: %w", err)
	}
	if c == nil {
		return fmt.Errorf("corrections: correction %s not found", correctionID)
	}
	if c.IsUndone {
		return fmt.Errorf("corrections: correction %s has already been undone", correctionID)
	}

	if err := s.db.UpdateMemoryStability(c.OriginalMemoryID, c.OriginalStabilityBefore); err != nil {
		return fmt.Errorf("failed to restore original memory stability: %w", err)
	}
	if c.ReplacementMemoryID != "" && c.ReplacementStabilityBefore != nil {
		if err := s.db.UpdateMemoryStability(c.ReplacementMemoryID, *c.ReplacementStabilityBefore); err != nil {
			return fmt.Errorf("failed to restore replacement memory stability: %w", err)
		}
	}

	if err := s.db.UndoCorrection(correctionID); err != nil {
		return err
	}

	log.Info("undid correction", "id", correctionID, "original", c.OriginalMemoryID)
	return nil
}

// Chain returns the correction history rooted at memoryID.
func (s *Service) Chain(memoryID string) ([]*database.Correction, error) {
	return s.db.GetCorrectionChain(memoryID)
}

// Stats summarizes the ledger.
func (s *Service) Stats() (*database.CorrectionStats, error) {
	return s.db.GetCorrectionsStats()
}
