package engine

import (
	"context"
	"time"

	"github.com/speckit/cogmem/internal/ai"
	"github.com/speckit/cogmem/internal/database"
	"github.com/speckit/cogmem/internal/fsrs"
	"github.com/speckit/cogmem/internal/fuzzy"
	"github.com/speckit/cogmem/internal/orchestrator"
	"github.com/speckit/cogmem/internal/relationships"
	"github.com/speckit/cogmem/internal/rerank"
	"github.com/speckit/cogmem/internal/rrf"
	"github.com/speckit/cogmem/internal/scoring"
	"github.com/speckit/cogmem/internal/search"
)

// maxConcepts bounds how many concept vectors multiConceptVector feeds to
// vectorindex.MultiConceptSearch, matching spec(4.3)'s vecs[2..=5] range.
const maxConcepts = 5

// QuickLimit, DeepLimit and FocusedLimit bound each mode's candidate pool
// before token-budget truncation in orchestrator.GetContext.
const (
	QuickLimit   = 10
	DeepLimit    = 30
	FocusedLimit = 15
)

func (e *Engine) expandedQuery(query string) string {
	opts := fuzzy.DefaultExpandOptions()
	opts.Enabled = e.cfg.Fuzzy.Enabled
	return fuzzy.ExpandQuery(query, opts).Expanded
}

// Quick implements orchestrator.Retriever: a single FTS5 pass over the
// (fuzzy-expanded) query, no fusion or cross-encoder reranking, for the
// cheapest mode. Every surfaced memory is still strengthened (the testing
// effect applies regardless of retrieval mode) and, when sessionID is set,
// deduplicated against what this session has already been sent.
func (e *Engine) Quick(sessionID, query string) ([]orchestrator.Item, error) {
	results, err := e.searchEng.Search(&search.SearchOptions{
		Query:      e.expandedQuery(query),
		SearchType: search.SearchTypeKeyword,
		Limit:      QuickLimit,
	})
	if err != nil {
		return nil, err
	}
	memories := make([]*database.Memory, len(results))
	for i, r := range results {
		memories[i] = r.Memory
	}
	memories = e.strengthenAccessed(memories)
	memories, err = e.dedupForSession(sessionID, memories)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.Memory.ID] = r.Relevance
	}
	return itemsFromMemories(memories, scores), nil
}

// Deep implements orchestrator.Retriever: fuzzy-expanded keyword and
// semantic candidate lists fused via RRF, composite-scored, and optionally
// cross-encoder reranked.
func (e *Engine) Deep(sessionID, query string, rerankEnabled bool) ([]orchestrator.Item, error) {
	return e.hybridRetrieve(sessionID, query, "", DeepLimit, rerankEnabled)
}

// Focused implements orchestrator.Retriever: the same hybrid fusion as
// Deep but over a narrower candidate pool, with intent threaded into the
// composite scorer's pattern factor so matching memory types are boosted.
func (e *Engine) Focused(sessionID, query, intent string) ([]orchestrator.Item, error) {
	return e.hybridRetrieve(sessionID, query, intent, FocusedLimit, false)
}

// strengthenAccessed applies the read-side testing effect (spec 4.9) to
// every memory surfaced in a result set and stamps last_cited (the
// composite scorer's citation factor). Persistence failures are logged,
// not propagated: a failed strengthen must never turn a successful read
// into an error.
func (e *Engine) strengthenAccessed(memories []*database.Memory) []*database.Memory {
	now := time.Now()
	for _, m := range memories {
		if m == nil {
			continue
		}
		days := 0.0
		if m.LastReview != nil {
			days = now.Sub(*m.LastReview).Hours() / 24.0
		}
		newStability, _ := fsrs.StrengthenOnAccess(m.Stability, m.Difficulty, days)
		if err := e.db.StrengthenMemory(m.ID, newStability, m.Difficulty, now); err != nil {
			log.Error("failed to strengthen accessed memory", "id", m.ID, "error", err)
			continue
		}
		if err := e.db.RecordCitation(m.ID, now); err != nil {
			log.Error("failed to record citation", "id", m.ID, "error", err)
		}
		m.Stability = newStability
		m.ReviewCount++
		m.LastReview = &now
		m.LastCited = &now
	}
	return memories
}

// dedupForSession filters memories already sent in sessionID, matching
// C12's per-session dedup contract. A blank sessionID means no session is
// tracked and every memory passes through unfiltered.
func (e *Engine) dedupForSession(sessionID string, memories []*database.Memory) ([]*database.Memory, error) {
	if sessionID == "" {
		return memories, nil
	}
	return e.sessionMgr.Filter(sessionID, memories)
}

func (e *Engine) hybridRetrieve(sessionID, query, intent string, limit int, rerankEnabled bool) ([]orchestrator.Item, error) {
	expanded := e.expandedQuery(query)

	keywordResults, err := e.searchEng.Search(&search.SearchOptions{
		Query:      expanded,
		SearchType: search.SearchTypeKeyword,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	sources := map[rrf.Source][]rrf.RankedItem{
		rrf.SourceFTS: rrf.RankFromOrdered(idsOf(keywordResults)),
	}
	byID := indexByID(keywordResults)

	if graphIDs := e.graphExpand(keywordResults, byID); len(graphIDs) > 0 {
		sources[rrf.SourceGraph] = rrf.RankFromOrdered(graphIDs)
	}

	if e.aiManager != nil {
		status := e.aiManager.GetStatus()
		switch {
		case status.OllamaAvailable && status.QdrantAvailable:
			// Qdrant is configured and reachable: use it as the vector
			// source, same as the teacher's original semantic-search path.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			semantic, err := e.aiManager.SemanticSearch(ctx, &ai.SemanticSearchOptions{Query: expanded, Limit: limit})
			cancel()
			if err == nil {
				ids := make([]string, len(semantic))
				for i, sr := range semantic {
					ids[i] = sr.MemoryID
					if _, ok := byID[sr.MemoryID]; !ok {
						if mem, err := e.db.GetMemory(sr.MemoryID); err == nil {
							byID[sr.MemoryID] = &search.SearchResult{Memory: mem, Relevance: sr.Score, MatchType: "semantic"}
						}
					}
				}
				sources[rrf.SourceVector] = rrf.RankFromOrdered(ids)
			}

		case status.OllamaAvailable && e.vecIndex.Len() > 0:
			// No Qdrant: fall back to the embedded C3 index (internal/
			// vectorindex), routing through multi_concept_search (spec 4.3)
			// whenever the fuzzy-expanded query yields more than one
			// concept term, and through a single Search otherwise.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			ids, err := e.vectorIndexSearch(ctx, query, limit)
			cancel()
			if err == nil && len(ids) > 0 {
				for _, id := range ids {
					if _, ok := byID[id]; !ok {
						if mem, err := e.db.GetMemory(id); err == nil {
							byID[id] = &search.SearchResult{Memory: mem, MatchType: "semantic"}
						}
					}
				}
				sources[rrf.SourceVector] = rrf.RankFromOrdered(ids)
			}
		}
	}

	fused := rrf.Fuse(sources)

	inputs := make([]scoring.Input, 0, len(fused))
	candidates := make([]*database.Memory, 0, len(fused))
	for _, f := range fused {
		sr, ok := byID[f.ID]
		if !ok {
			continue
		}
		m := sr.Memory
		candidates = append(candidates, m)
		inputs = append(inputs, scoring.Input{
			Stability:      m.Stability,
			Difficulty:     m.Difficulty,
			LastReview:     m.LastReview,
			AccessCount:    m.AccessCount,
			ImportanceBase: float64(m.Importance) / 10.0,
			ImportanceTier: m.ImportanceTier,
			SimilarityPct:  f.RRFScore * 100,
			Title:          m.Title,
			QueryTitleHint: query,
			QueryIntent:    intent,
			LastCited:      m.LastCited,
			LastAccessed:   m.LastAccessed,
			UpdatedAt:      m.UpdatedAt,
		})
	}

	order, breakdowns := scoring.ApplyScoring(inputs)

	ranked := make([]*database.Memory, len(order))
	scores := make(map[string]float64, len(order))
	for i, idx := range order {
		ranked[i] = candidates[idx]
		scores[candidates[idx].ID] = breakdowns[idx].CompositeScore
	}

	if rerankEnabled && e.cfg.CrossEncoder.Enabled {
		ranked, scores = e.applyRerank(query, ranked, scores)
	}

	ranked = e.strengthenAccessed(ranked)
	ranked, err = e.dedupForSession(sessionID, ranked)
	if err != nil {
		return nil, err
	}
	return itemsFromMemories(ranked, scores), nil
}

// vectorIndexSearch embeds query (and, when fuzzy expansion surfaces extra
// concept terms, each of those too) and searches the embedded vector index,
// returning ranked ids. With 2..maxConcepts concepts it fuses them through
// vectorindex.MultiConceptSearch (sum-of-ranks RRF); with exactly one it
// calls Search directly rather than paying for a degenerate multi-concept
// fusion over a single list.
func (e *Engine) vectorIndexSearch(ctx context.Context, query string, limit int) ([]string, error) {
	concepts := conceptTerms(query)

	ollama := e.aiManager.Ollama()
	vecs := make([][]float64, 0, len(concepts))
	for _, c := range concepts {
		v, err := ollama.GenerateEmbedding(ctx, c)
		if err != nil {
			log.Warn("failed to embed concept for vector search", "concept", c, "error", err)
			continue
		}
		vecs = append(vecs, v)
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	if len(vecs) == 1 {
		results, err := e.vecIndex.Search(vecs[0], limit, nil)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		return ids, nil
	}

	fused, err := e.vecIndex.MultiConceptSearch(vecs, limit, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	return ids, nil
}

// conceptTerms splits query into 1..maxConcepts distinct concept strings for
// multi_concept_search (spec 4.3): the query itself plus its fuzzy-expanded
// acronym/typo terms, each searched as its own vector rather than folded
// into one averaged embedding. A query with no expansions yields a single
// concept (the query itself), which vectorIndexSearch treats as a plain
// single-vector search.
func conceptTerms(query string) []string {
	expanded := fuzzy.ExpandQuery(query, fuzzy.DefaultExpandOptions())

	terms := []string{query}
	seen := map[string]bool{query: true}
	for _, e := range expanded.Expansions {
		if seen[e] {
			continue
		}
		seen[e] = true
		terms = append(terms, e)
		if len(terms) >= maxConcepts {
			break
		}
	}
	return terms
}

// applyRerank reorders ranked by cross-encoder relevance, returning the new
// order and its scores keyed by memory id. Per spec(4.8), any reranker
// failure or self-disable falls back to the input order unchanged.
func (e *Engine) applyRerank(query string, ranked []*database.Memory, scores map[string]float64) ([]*database.Memory, map[string]float64) {
	rerankCandidates := make([]rerank.Candidate, len(ranked))
	byID := make(map[string]*database.Memory, len(ranked))
	for i, m := range ranked {
		rerankCandidates[i] = rerank.Candidate{ID: m.ID, Content: m.Content, Score: scores[m.ID]}
		byID[m.ID] = m
	}

	out := e.reranker.Rerank(context.Background(), query, rerankCandidates, rerank.Options{
		Enabled:  true,
		Provider: rerank.Provider(e.cfg.CrossEncoder.Provider),
	})

	reordered := make([]*database.Memory, 0, len(out.Results))
	newScores := make(map[string]float64, len(out.Results))
	for _, r := range out.Results {
		m := byID[r.ID]
		if m == nil {
			continue
		}
		reordered = append(reordered, m)
		newScores[m.ID] = r.RerankScore
	}
	return reordered, newScores
}

// itemsFromMemories converts a final, already-strengthened and
// already-deduplicated memory list into the orchestrator's Item shape,
// preserving memories' order and attaching each one's score from scores
// (0 when absent).
func itemsFromMemories(memories []*database.Memory, scores map[string]float64) []orchestrator.Item {
	items := make([]orchestrator.Item, 0, len(memories))
	for _, m := range memories {
		items = append(items, orchestrator.Item{ID: m.ID, Title: m.Title, Content: m.Content, Score: scores[m.ID]})
	}
	return items
}

// graphExpandSeeds bounds how many of the top keyword hits are used as BFS
// roots for graph expansion, keeping the extra relationship lookups cheap.
const graphExpandSeeds = 3

// graphExpand expands outward one hop from the top keyword hits via the
// relationship graph, feeding the GRAPH rrf source per the documented
// open-question decision that graph expansion is an optional,
// always-empty-capable source alongside FTS and vector. Related memories
// not already present in byID are added to it so the composite scorer has
// their full Memory record. An empty or nil relationships collaborator
// (or no edges found) yields no GRAPH source, which rrf.Fuse treats as
// absent rather than an error.
func (e *Engine) graphExpand(seeds []*search.SearchResult, byID map[string]*search.SearchResult) []string {
	if e.relSvc == nil || len(seeds) == 0 {
		return nil
	}
	n := len(seeds)
	if n > graphExpandSeeds {
		n = graphExpandSeeds
	}

	var ids []string
	seen := make(map[string]bool)
	for _, s := range seeds[:n] {
		related, err := e.relSvc.FindRelated(&relationships.FindRelatedOptions{MemoryID: s.Memory.ID})
		if err != nil {
			log.Error("graph expansion failed", "seed", s.Memory.ID, "error", err)
			continue
		}
		for _, m := range related {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ids = append(ids, m.ID)
			if _, ok := byID[m.ID]; !ok {
				byID[m.ID] = &search.SearchResult{Memory: m, MatchType: "graph"}
			}
		}
	}
	return ids
}

func idsOf(results []*search.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Memory.ID
	}
	return ids
}

func indexByID(results []*search.SearchResult) map[string]*search.SearchResult {
	m := make(map[string]*search.SearchResult, len(results))
	for _, r := range results {
		m[r.Memory.ID] = r
	}
	return m
}
