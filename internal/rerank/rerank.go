// Package rerank implements the optional cross-encoder reranking stage
// applied after fusion and composite scoring. It is disabled by default.
// The P95 latency circuit breaker is grounded on internal/ratelimit's
// mutex-guarded counter + snapshot idiom (bucket.go, metrics.go),
// repurposed here to track a latency percentile instead of a request rate.
package rerank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("rerank")

// Provider identifies a cross-encoder backend.
type Provider string

const (
	ProviderAuto   Provider = "auto"
	ProviderVoyage Provider = "voyage"
	ProviderCohere Provider = "cohere"
	ProviderLocal  Provider = "local"
)

const (
	MaxCandidates        = 20
	CacheTTL              = 5 * time.Minute
	CacheMaxEntries       = 1000
	CacheEvictFraction    = 0.10
	P95LatencyThresholdMS = 500
	LengthPenaltyThreshold = 100
	LengthPenaltyMin       = 0.8
	LengthPenaltyMax       = 1.0
)

var providerTimeouts = map[Provider]time.Duration{
	ProviderVoyage: 10 * time.Second,
	ProviderCohere: 10 * time.Second,
	ProviderLocal:  5 * time.Second,
}

// Candidate is one fused-and-scored result eligible for reranking.
type Candidate struct {
	ID      string
	Content string
	Score   float64 // incoming composite score, used as the fallback order
}

// Result is one reranked candidate.
type Result struct {
	ID             string
	Content        string
	OriginalScore  float64
	RerankScore    float64
	LengthPenalty  float64
}

// Metadata describes how a Rerank call was actually executed.
type Metadata struct {
	RerankingApplied bool
	Provider         Provider
	CacheHit         bool
	LatencyMS        float64
	SessionDisabled  bool
	DisableReason    string
	FallbackReason   string
}

// Output is Rerank's return value.
type Output struct {
	Results  []Result
	Metadata Metadata
}

// Options controls a single Rerank call.
type Options struct {
	Enabled       bool
	Provider      Provider
	TopK          int
	MaxCandidates int
}

// scorer is the pluggable per-provider scoring function; real deployments
// wire this to an HTTP client for voyage/cohere or an in-process model for
// local. Scorers are injected through New; this package ships no
// provider-specific adapters.
type scorer func(ctx context.Context, query string, content string) (float64, error)

// cacheEntry is one memoized rerank response.
type cacheEntry struct {
	results  []Result
	cachedAt time.Time
}

// Reranker holds cross-call state: the result cache and the P95 latency
// circuit breaker, both session-scoped (one Reranker per session/process).
type Reranker struct {
	mu    sync.Mutex
	cache map[string]cacheEntry

	latencies       []float64 // rolling samples, most-recent-capped
	sessionDisabled bool
	disableReason   string

	scorers map[Provider]scorer
}

// New constructs a Reranker with the given provider scorers. A nil or
// missing scorer for a provider makes that provider always fail over to the
// next one in the resolution order.
func New(scorers map[Provider]scorer) *Reranker {
	return &Reranker{
		cache:   make(map[string]cacheEntry),
		scorers: scorers,
	}
}

// CacheKey computes the deterministic cache key for a (query, candidate set)
// pair: sha256(query|sorted(doc_ids))[:16].
func CacheKey(query string, ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	basis := query + "|" + strings.Join(sorted, ",")
	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:])[:16]
}

// LengthPenalty scores content length: empty -> 0.8, >=100 chars -> 1.0,
// linear in between.
func LengthPenalty(content string) float64 {
	n := len([]rune(strings.TrimSpace(content)))
	if n == 0 {
		return LengthPenaltyMin
	}
	if n >= LengthPenaltyThreshold {
		return LengthPenaltyMax
	}
	frac := float64(n) / float64(LengthPenaltyThreshold)
	return LengthPenaltyMin + frac*(LengthPenaltyMax-LengthPenaltyMin)
}

// resolveProvider walks the voyage -> cohere -> local order, returning the
// first provider with a registered scorer. An explicit non-auto provider is
// returned as-is if it has a scorer, else resolution falls through the
// remaining order.
func (r *Reranker) resolveProvider(preferred Provider) (Provider, scorer, bool) {
	order := []Provider{ProviderVoyage, ProviderCohere, ProviderLocal}
	if preferred != "" && preferred != ProviderAuto {
		if s, ok := r.scorers[preferred]; ok {
			return preferred, s, true
		}
		// Explicit but unavailable: still fall through to auto order below
		// rather than failing the whole call.
	}
	for _, p := range order {
		if s, ok := r.scorers[p]; ok {
			return p, s, true
		}
	}
	return "", nil, false
}

func (r *Reranker) evictIfFull() {
	if len(r.cache) < CacheMaxEntries {
		return
	}
	type keyed struct {
		key string
		at  time.Time
	}
	entries := make([]keyed, 0, len(r.cache))
	for k, v := range r.cache {
		entries = append(entries, keyed{k, v.cachedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	evictCount := int(float64(len(entries)) * CacheEvictFraction)
	if evictCount < 1 {
		evictCount = 1
	}
	for i := 0; i < evictCount && i < len(entries); i++ {
		delete(r.cache, entries[i].key)
	}
}

func (r *Reranker) recordLatency(ms float64) {
	const maxSamples = 200
	r.latencies = append(r.latencies, ms)
	if len(r.latencies) > maxSamples {
		r.latencies = r.latencies[len(r.latencies)-maxSamples:]
	}
}

func (r *Reranker) p95Locked() float64 {
	if len(r.latencies) == 0 {
		return 0
	}
	sorted := append([]float64(nil), r.latencies...)
	sort.Float64s(sorted)
	idx := int(0.95 * float64(len(sorted)-1))
	return sorted[idx]
}

// Disabled reports whether the circuit breaker has tripped for this
// Reranker's session.
func (r *Reranker) Disabled() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionDisabled, r.disableReason
}

// ResetSession clears the P95 circuit breaker and its latency history,
// matching spec(5)'s "reset on reset_session()" contract. The rerank cache
// is left intact: only the latency/disabled state is session-scoped.
func (r *Reranker) ResetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionDisabled = false
	r.disableReason = ""
	r.latencies = r.latencies[:0]
}

// Rerank scores candidates against query and returns them ordered by
// rerank score descending. On any disabling condition (opts.Enabled=false,
// fewer than 2 candidates, circuit breaker tripped, or provider failure) it
// falls back to the incoming fused order without reranking, never blocking
// or erroring the caller.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, opts Options) Output {
	fallback := func(reason string) Output {
		return Output{Results: topK(fallbackOrder(candidates), opts.TopK), Metadata: Metadata{
			RerankingApplied: false,
			FallbackReason:   reason,
		}}
	}

	if !opts.Enabled {
		return fallback("reranking disabled")
	}
	if len(candidates) < 2 {
		return fallback("fewer than 2 candidates")
	}

	r.mu.Lock()
	if r.sessionDisabled {
		reason := r.disableReason
		r.mu.Unlock()
		out := fallback("circuit breaker tripped: " + reason)
		out.Metadata.SessionDisabled = true
		out.Metadata.DisableReason = reason
		return out
	}
	r.mu.Unlock()

	maxCand := opts.MaxCandidates
	if maxCand <= 0 {
		maxCand = MaxCandidates
	}
	limited := candidates
	if len(limited) > maxCand {
		limited = limited[:maxCand]
	}

	ids := make([]string, len(limited))
	for i, c := range limited {
		ids[i] = c.ID
	}
	key := CacheKey(query, ids)

	r.mu.Lock()
	if entry, ok := r.cache[key]; ok && time.Since(entry.cachedAt) < CacheTTL {
		results := entry.results
		r.mu.Unlock()
		return Output{Results: topK(results, opts.TopK), Metadata: Metadata{RerankingApplied: true, CacheHit: true}}
	}
	r.mu.Unlock()

	provider, score, ok := r.resolveProvider(opts.Provider)
	if !ok {
		return fallback("no reranking provider available")
	}

	timeout := providerTimeouts[provider]
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	results := make([]Result, 0, len(limited))
	var callErr error
	for _, c := range limited {
		s, err := score(callCtx, query, c.Content)
		if err != nil {
			callErr = err
			break
		}
		lp := LengthPenalty(c.Content)
		results = append(results, Result{
			ID:            c.ID,
			Content:       c.Content,
			OriginalScore: c.Score,
			RerankScore:   s * lp,
			LengthPenalty: lp,
		})
	}
	elapsedMS := float64(time.Since(start).Microseconds()) / 1000.0

	r.mu.Lock()
	r.recordLatency(elapsedMS)
	p95 := r.p95Locked()
	if p95 > P95LatencyThresholdMS {
		r.sessionDisabled = true
		r.disableReason = fmt.Sprintf("P95 latency %.0fms exceeded %dms threshold", p95, P95LatencyThresholdMS)
		log.Error("rerank circuit breaker tripped", "p95_ms", p95, "provider", provider)
	}
	r.mu.Unlock()

	if callErr != nil {
		log.Error("reranking provider failed", "error", callErr, "provider", provider)
		return fallback(fmt.Sprintf("provider %s failed: %v", provider, callErr))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RerankScore != results[j].RerankScore {
			return results[i].RerankScore > results[j].RerankScore
		}
		return results[i].ID < results[j].ID
	})

	r.mu.Lock()
	r.evictIfFull()
	r.cache[key] = cacheEntry{results: results, cachedAt: time.Now()}
	r.mu.Unlock()

	return Output{Results: topK(results, opts.TopK), Metadata: Metadata{
		RerankingApplied: true,
		Provider:         provider,
		LatencyMS:        elapsedMS,
	}}
}

func fallbackOrder(candidates []Candidate) []Result {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{ID: c.ID, Content: c.Content, OriginalScore: c.Score, RerankScore: c.Score}
	}
	return out
}

func topK(results []Result, k int) []Result {
	if k <= 0 || k >= len(results) {
		return results
	}
	return results[:k]
}
