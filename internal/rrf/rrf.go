// Package rrf fuses ranked lists from the vector, lexical, and (optional)
// graph sources into one ordered result set via Reciprocal Rank Fusion,
// grounded on the k=60 RRF merge in scrypster-memento's
// internal/storage/sqlite/search_provider.go (score += 1/(k+rank+1)) and the
// per-source rank-flag shape of Aman-CERP-amanmcp's internal/search/engine.go
// RRFFusion type.
package rrf

import (
	"sort"
	"strconv"

	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("rrf")

// Source identifies which retrieval backend produced a ranked hit.
type Source string

const (
	SourceVector Source = "VECTOR"
	SourceFTS    Source = "FTS"
	SourceBM25   Source = "BM25"
	SourceGraph  Source = "GRAPH"
)

// K is the standard RRF smoothing constant.
const K = 60.0

// RankedItem is one entry from a single-source ranked list, 0-indexed by
// rank (0 = best).
type RankedItem struct {
	ID    string
	Rank  int
	Score float64 // raw source score, carried through for diagnostics
}

// Fused is one deduplicated result after RRF scoring.
type Fused struct {
	ID        string
	RRFScore  float64
	InVector  bool
	InFTS     bool
	InBM25    bool
	InGraph   bool
	SourceContributions map[Source]float64
}

// Fuse combines per-source ranked lists into one RRF-scored, descending,
// deterministically tie-broken (ascending id) result list. Lists not
// present in sources (e.g. an empty GRAPH list because no relationships
// exist) simply contribute nothing, matching spec(9)'s "empty rather than
// erroring" rule for optional sources.
func Fuse(sources map[Source][]RankedItem) []Fused {
	acc := make(map[string]*Fused)

	for src, items := range sources {
		for _, it := range items {
			f, ok := acc[it.ID]
			if !ok {
				f = &Fused{ID: it.ID, SourceContributions: make(map[Source]float64)}
				acc[it.ID] = f
			}
			contribution := 1.0 / (K + float64(it.Rank+1))
			f.RRFScore += contribution
			f.SourceContributions[src] = contribution
			switch src {
			case SourceVector:
				f.InVector = true
			case SourceFTS:
				f.InFTS = true
			case SourceBM25:
				f.InBM25 = true
			case SourceGraph:
				f.InGraph = true
			}
		}
	}

	out := make([]Fused, 0, len(acc))
	for _, f := range acc {
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return out[i].ID < out[j].ID
	})

	log.Debug("fused ranked lists", "sources", len(sources), "results", len(out))
	return out
}

// RankFromOrdered converts an already-ordered id slice (best first) into
// RankedItem entries with rank = index.
func RankFromOrdered(ids []string) []RankedItem {
	items := make([]RankedItem, len(ids))
	for i, id := range ids {
		items[i] = RankedItem{ID: id, Rank: i}
	}
	return items
}

// MultiConceptSearch aggregates per-vector top-k ranked lists (one per query
// concept embedding) using the same sum-of-ranks RRF rule as Fuse, for
// mechanical consistency with C6. This resolves spec(9)'s open aggregation
// choice as sum-of-ranks rather than max-similarity.
func MultiConceptSearch(perVectorRankings [][]RankedItem) []Fused {
	sources := make(map[Source][]RankedItem, len(perVectorRankings))
	for i, ranking := range perVectorRankings {
		sources[Source("VECTOR_CONCEPT_"+strconv.Itoa(i))] = ranking
	}
	return fuseArbitrarySources(sources)
}

// fuseArbitrarySources is Fuse generalized over a non-fixed source key type,
// used internally by MultiConceptSearch since concept sources are dynamic
// (2..5 of them) rather than the fixed VECTOR/FTS/BM25/GRAPH set.
func fuseArbitrarySources(sources map[Source][]RankedItem) []Fused {
	acc := make(map[string]*Fused)
	for _, items := range sources {
		for _, it := range items {
			f, ok := acc[it.ID]
			if !ok {
				f = &Fused{ID: it.ID, SourceContributions: make(map[Source]float64)}
				acc[it.ID] = f
			}
			f.RRFScore += 1.0 / (K + float64(it.Rank+1))
		}
	}
	out := make([]Fused, 0, len(acc))
	for _, f := range acc {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return out[i].ID < out[j].ID
	})
	return out
}
