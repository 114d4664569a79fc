// Package vectorindex implements the embedded, deterministic vector index
// used when the optional Qdrant backend (internal/vector) is disabled: an
// in-memory brute-force cosine-similarity search with ties broken by
// ascending id. Type naming (Point, SearchResult) mirrors
// internal/vector/qdrant.go, with filtering through Filter, so the two backends are interchangeable behind
// a common shape; multi-concept aggregation delegates to internal/rrf's
// sum-of-ranks fusion.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/speckit/cogmem/internal/logging"
	"github.com/speckit/cogmem/internal/rrf"
)

var log = logging.GetLogger("vectorindex")

// Point is one indexed vector with its filterable metadata.
type Point struct {
	ID         string
	Vector     []float64
	SpecFolder string
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID         string
	Similarity float64
}

// Filter narrows a Search call to a spec_folder, when non-empty.
type Filter struct {
	SpecFolder string
}

// Index is a thread-safe, in-process vector index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]Point
}

// New constructs an empty Index for vectors of the given dimension. A
// dimension of 0 means "infer from the first insert."
func New(dimension int) *Index {
	return &Index{dimension: dimension, points: make(map[string]Point)}
}

// Dimension returns the index's vector dimension (0 if not yet inferred).
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Len returns the number of indexed points.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.points)
}

// Insert adds or replaces a point. The vector's dimension must match the
// index's (once established).
func (idx *Index) Insert(p Point) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(p.Vector)
	}
	if len(p.Vector) != idx.dimension {
		return fmt.Errorf("vectorindex: dimension mismatch: expected %d, got %d", idx.dimension, len(p.Vector))
	}
	idx.points[p.ID] = p
	return nil
}

// Update replaces an existing point's vector/metadata; equivalent to
// Insert, kept as a distinct name to match the insert/delete/update/search
// verb set.
func (idx *Index) Update(p Point) error {
	return idx.Insert(p)
}

// Delete removes a point by id. Deleting a non-existent id is a no-op.
func (idx *Index) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.points, id)
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp into spec(4.3)'s similarity ∈ [0,1] contract: a negative cosine
	// (opposite-pointing vectors) reports as 0 similarity, not a negative
	// score.
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// Search returns the k nearest points to query by cosine similarity,
// narrowed by filter when its SpecFolder is non-empty, ties broken by
// ascending id.
func (idx *Index) Search(query []float64, k int, filter *Filter) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(query) != idx.dimension {
		return nil, fmt.Errorf("vectorindex: query dimension mismatch: expected %d, got %d", idx.dimension, len(query))
	}

	results := make([]SearchResult, 0, len(idx.points))
	for _, p := range idx.points {
		if filter != nil && filter.SpecFolder != "" && p.SpecFolder != filter.SpecFolder {
			continue
		}
		results = append(results, SearchResult{ID: p.ID, Similarity: cosineSimilarity(query, p.Vector)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}

	log.Debug("vector search", "k", k, "candidates", len(idx.points), "results", len(results))
	return results, nil
}

// MultiConceptSearch runs Search once per query vector and fuses the
// resulting ranked lists via RRF sum-of-ranks (internal/rrf), per spec(9)'s
// open-question decision for multi-concept aggregation.
func (idx *Index) MultiConceptSearch(queries [][]float64, k int, filter *Filter) ([]rrf.Fused, error) {
	rankings := make([][]rrf.RankedItem, 0, len(queries))
	for _, q := range queries {
		results, err := idx.Search(q, k, filter)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		rankings = append(rankings, rrf.RankFromOrdered(ids))
	}
	return rrf.MultiConceptSearch(rankings), nil
}
