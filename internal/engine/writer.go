package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/speckit/cogmem/internal/ai"
	"github.com/speckit/cogmem/internal/corrections"
	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/fsrs"
	"github.com/speckit/cogmem/internal/gate"
	"github.com/speckit/cogmem/internal/memory"
	"github.com/speckit/cogmem/internal/relationships"
	"github.com/speckit/cogmem/internal/search"
	"github.com/speckit/cogmem/internal/vectorindex"
)

// CandidatePoolSize bounds how many near neighbors the write gate considers
// before picking the single best match.
const CandidatePoolSize = 5

// RememberInput is one write request, routed through the prediction-error
// gate before it touches storage.
type RememberInput struct {
	Content             string
	SessionID           string
	Tags                []string
	Domain              string
	Importance          int
	Source              string
	Actor               string // attributed to corrections ledger entries
	CheckContradictions bool

	// SpecFolder, FilePath and AnchorID set the new memory's natural key;
	// all optional, see memory.StoreOptions.
	SpecFolder string
	FilePath   string
	AnchorID   string
}

// RememberResult reports what the gate decided and what storage operation
// it caused.
type RememberResult struct {
	Decision   gate.Decision
	Memory     *database.Memory
	Correction *corrections.Result
	LinkedIDs  []string
}

// Remember is the write entry point: it classifies newContent against its
// nearest existing neighbors and dispatches to the matching storage
// operation, logging every non-trivial decision to the conflict log.
func (e *Engine) Remember(ctx context.Context, in RememberInput) (*RememberResult, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("engine: content is required")
	}

	candidates, err := e.nearestNeighbors(ctx, in.Content, in.SessionID, in.Domain)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to gather candidates: %w", err)
	}

	decision := gate.Classify(in.Content, candidates, gate.Options{CheckContradictions: in.CheckContradictions})
	e.logConflict(decision, in.Content)

	switch decision.Action {
	case gate.ActionReinforce:
		mem, err := e.reinforce(decision.CandidateID)
		return &RememberResult{Decision: decision, Memory: mem}, err

	case gate.ActionUpdate:
		mem, err := e.memSvc.Update(&memory.UpdateOptions{ID: decision.CandidateID, Content: &in.Content})
		return &RememberResult{Decision: decision, Memory: mem}, err

	case gate.ActionSupersede:
		mem, err := e.createMemory(in)
		if err != nil {
			return nil, err
		}
		reason := decision.Reason
		corr, err := e.corrSvc.Supersede(decision.CandidateID, mem.ID, reason, in.Actor)
		if err != nil {
			log.Error("failed to record supersede correction", "error", err, "original", decision.CandidateID, "replacement", mem.ID)
		}
		return &RememberResult{Decision: decision, Memory: mem, Correction: corr}, nil

	case gate.ActionCreateLinked:
		mem, err := e.createMemory(in)
		if err != nil {
			return nil, err
		}
		linked := e.linkRelated(mem.ID, decision)
		return &RememberResult{Decision: decision, Memory: mem, LinkedIDs: linked}, nil

	default: // gate.ActionCreate
		mem, err := e.createMemory(in)
		return &RememberResult{Decision: decision, Memory: mem}, err
	}
}

// createMemory stores a fresh memory and, when an AI backend is configured,
// indexes it for future semantic retrieval. Indexing failure is logged, not
// propagated: the memory is still durably stored.
func (e *Engine) createMemory(in RememberInput) (*database.Memory, error) {
	result, err := e.memSvc.Store(&memory.StoreOptions{
		Content:    in.Content,
		Importance: in.Importance,
		Tags:       in.Tags,
		Domain:     in.Domain,
		Source:     in.Source,
		SessionID:  in.SessionID,
		SpecFolder: in.SpecFolder,
		FilePath:   in.FilePath,
		AnchorID:   in.AnchorID,
	})
	if err != nil {
		return nil, err
	}
	if err := e.IndexForSearch(context.Background(), result.Memory); err != nil {
		log.Warn("failed to index new memory", "id", result.Memory.ID, "error", err)
	}
	return result.Memory, nil
}

// IndexForSearch indexes an already-stored memory for semantic retrieval,
// choosing Qdrant or the embedded vector index the same way createMemory
// does. Exported so write paths that bypass Remember (bulk ingestion, the
// flat REST CRUD endpoints) still get a working fallback when Qdrant isn't
// configured instead of silently never indexing the memory.
func (e *Engine) IndexForSearch(ctx context.Context, mem *database.Memory) error {
	if e.aiManager == nil {
		return nil
	}
	status := e.aiManager.GetStatus()
	if status.QdrantAvailable {
		return e.aiManager.IndexMemory(ctx, mem)
	}
	if status.OllamaAvailable {
		return e.indexEmbedded(ctx, mem)
	}
	return nil
}

// UnindexForSearch removes a deleted memory from whichever vector backend
// IndexForSearch would have placed it in.
func (e *Engine) UnindexForSearch(ctx context.Context, memoryID string) error {
	if e.aiManager == nil {
		return nil
	}
	e.vecIndex.Delete(memoryID)
	status := e.aiManager.GetStatus()
	if status.QdrantAvailable {
		return e.aiManager.DeleteMemoryIndex(ctx, memoryID)
	}
	return nil
}

// indexEmbedded embeds mem's content and inserts it into the engine's
// embedded C3 vector index (vectorindex), the fallback backend used when
// Qdrant isn't configured or reachable. Mirrors ai.Manager.IndexMemory's
// embed-then-persist-status shape, but against the in-process index rather
// than Qdrant.
func (e *Engine) indexEmbedded(ctx context.Context, mem *database.Memory) error {
	embedding, err := e.aiManager.Ollama().GenerateEmbedding(ctx, mem.Content)
	if err != nil {
		if uerr := e.db.UpdateMemoryEmbedding(mem.ID, nil, database.EmbeddingFailed); uerr != nil {
			log.Warn("failed to record embedding failure", "id", mem.ID, "error", uerr)
		}
		return err
	}
	if err := e.vecIndex.Insert(vectorindex.Point{ID: mem.ID, Vector: embedding, SpecFolder: mem.SpecFolder}); err != nil {
		return err
	}
	embeddingJSON, _ := json.Marshal(embedding)
	mem.Embedding = embeddingJSON
	if err := e.db.UpdateMemoryEmbedding(mem.ID, embeddingJSON, database.EmbeddingSuccess); err != nil {
		log.Warn("failed to persist embedding status", "id", mem.ID, "error", err)
	}
	return nil
}

// reinforce applies the read-side testing effect to an existing memory:
// FSRS stability strengthens and review/access telemetry advances.
func (e *Engine) reinforce(memoryID string) (*database.Memory, error) {
	mem, err := e.db.GetMemory(memoryID)
	if err != nil {
		return nil, fmt.Errorf("engine: reinforced memory %s not found: %w", memoryID, err)
	}

	days := 0.0
	if mem.LastReview != nil {
		days = time.Since(*mem.LastReview).Hours() / 24.0
	}
	newStability, _ := fsrs.StrengthenOnAccess(mem.Stability, mem.Difficulty, days)

	if err := e.db.StrengthenMemory(memoryID, newStability, mem.Difficulty, time.Now()); err != nil {
		return nil, err
	}
	mem.Stability = newStability
	return mem, nil
}

// linkRelated records an auto-generated "similar" edge from mem to each of
// decision.RelatedIDs, gated by the same relations toggle that guards the
// corrections ledger's causal edges. Failures are logged per-edge rather
// than aborting the whole call, since the memory itself is already stored.
func (e *Engine) linkRelated(memoryID string, decision gate.Decision) []string {
	if !e.cfg.Relations.Enabled {
		log.Debug("relations disabled, skipping auto-linking", "memory", memoryID)
		return nil
	}
	linked := make([]string, 0, len(decision.RelatedIDs))
	for _, relatedID := range decision.RelatedIDs {
		_, err := e.relSvc.Create(&relationships.CreateOptions{
			SourceMemoryID:   memoryID,
			TargetMemoryID:   relatedID,
			RelationshipType: "similar",
			Strength:         decision.Similarity,
			Context:          decision.Reason,
			AutoGenerated:    true,
		})
		if err != nil {
			log.Error("failed to auto-link related memory", "error", err, "source", memoryID, "target", relatedID)
			continue
		}
		linked = append(linked, relatedID)
	}
	return linked
}

// nearestNeighbors gathers up to CandidatePoolSize existing memories most
// similar to content, preferring true vector similarity when the AI
// backend is fully available and falling back to FTS relevance as a
// similarity proxy otherwise.
func (e *Engine) nearestNeighbors(ctx context.Context, content, sessionID, domain string) ([]gate.Candidate, error) {
	if e.aiManager != nil {
		status := e.aiManager.GetStatus()
		if status.OllamaAvailable && status.QdrantAvailable {
			results, err := e.aiManager.SemanticSearch(ctx, &ai.SemanticSearchOptions{
				Query:     content,
				Limit:     CandidatePoolSize,
				SessionID: sessionID,
				Domain:    domain,
			})
			if err == nil {
				out := make([]gate.Candidate, len(results))
				for i, r := range results {
					out[i] = gate.Candidate{ID: r.MemoryID, Content: r.Content, Similarity: r.Score}
				}
				return out, nil
			}
			log.Warn("semantic candidate search failed, falling back to keyword", "error", err)
		}
	}

	results, err := e.searchEng.Search(&search.SearchOptions{
		Query:      content,
		SearchType: search.SearchTypeKeyword,
		Limit:      CandidatePoolSize,
		SessionID:  sessionID,
		Domain:     domain,
	})
	if err != nil {
		return nil, err
	}
	out := make([]gate.Candidate, len(results))
	for i, r := range results {
		out[i] = gate.Candidate{ID: r.Memory.ID, Content: r.Memory.Content, Similarity: r.Relevance}
	}
	return out, nil
}

func (e *Engine) logConflict(decision gate.Decision, newContent string) {
	if !gate.WorthLogging(decision) {
		return
	}
	sum := sha256.Sum256([]byte(newContent))
	c := &database.Conflict{
		NewContentHash:   hex.EncodeToString(sum[:]),
		ExistingMemoryID: decision.CandidateID,
		SimilarityScore:  decision.Similarity,
		Action:           string(decision.Action),
		Notes:            gate.TruncatePreview(decision.Reason),
	}
	if err := e.db.RecordConflict(c); err != nil {
		log.Error("failed to record conflict log entry", "error", err, "action", decision.Action)
	}
}
