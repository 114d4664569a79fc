// Package fuzzy implements query expansion: edit-distance matching, a
// curated acronym map, and common-typo correction, used to rewrite a search
// query before it reaches the lexical index. Style follows the teacher's
// internal/memory/chunker.go: small pure functions over plain structs, no
// external NLP dependency.
package fuzzy

import (
	"strings"

	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("fuzzy")

// Tunable constants, bit-exact across implementations.
const (
	MaxEditDistance     = 2
	MinFuzzyTermLength  = 3
)

// stopWords are excluded from fuzzy acronym matching regardless of length.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "are": true, "was": true, "were": true,
}

// ACRONYM_MAP: curated domain acronyms used across this codebase and the
// broader AI-assistant/coding-tooling domain, keyed lower-case.
var acronymMap = map[string][]string{
	"rrf":   {"reciprocal rank fusion"},
	"bm25":  {"best matching 25"},
	"fsrs":  {"free spaced repetition scheduler"},
	"mcp":   {"model context protocol"},
	"llm":   {"large language model"},
	"ann":   {"approximate nearest neighbor"},
	"ast":   {"abstract syntax tree"},
	"api":   {"application programming interface"},
	"cli":   {"command line interface"},
	"sdk":   {"software development kit"},
	"orm":   {"object relational mapping"},
	"fts":   {"full text search"},
	"kv":    {"key value"},
	"wal":   {"write ahead log"},
	"acid":  {"atomicity consistency isolation durability"},
	"crud":  {"create read update delete"},
	"ci":    {"continuous integration"},
	"cd":    {"continuous delivery", "continuous deployment"},
	"rpc":   {"remote procedure call"},
	"http":  {"hypertext transfer protocol"},
	"json":  {"javascript object notation"},
	"yaml":  {"yaml ain't markup language"},
	"sql":   {"structured query language"},
	"nosql": {"not only sql"},
	"ttl":   {"time to live"},
	"lru":   {"least recently used"},
	"lfu":   {"least frequently used"},
	"p95":   {"95th percentile latency"},
	"pe":    {"prediction error"},
	"uuid":  {"universally unique identifier"},
	"dag":   {"directed acyclic graph"},
	"auth":  {"authentication authorization"},
	"env":   {"environment"},
	"repo":  {"repository"},
	"impl":  {"implementation"},
}

// commonTypos maps frequently mistyped domain words to their canonical form.
var commonTypos = map[string]string{
	"teh":         "the",
	"taht":        "that",
	"recieve":     "receive",
	"occured":     "occurred",
	"seperate":    "separate",
	"definately":  "definitely",
	"successfull": "successful",
	"embeding":    "embedding",
	"memoery":     "memory",
	"retreival":   "retrieval",
	"relevence":   "relevance",
	"similiarity": "similarity",
}

// Levenshtein computes the edit distance between a and b, case-insensitive.
// levenshtein(a,b) = levenshtein(b,a); levenshtein(a,a)=0;
// levenshtein('', b) = len(b). Empty/nil strings are treated symmetrically.
func Levenshtein(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// levenshteinWithinThreshold is an early-exit variant: if the length
// difference alone exceeds maxEdit, the full DP is skipped.
func levenshteinWithinThreshold(a, b string, maxEdit int) (int, bool) {
	if diff := len(a) - len(b); diff > maxEdit || diff < -maxEdit {
		return 0, false
	}
	d := Levenshtein(a, b)
	return d, d <= maxEdit
}

// FindFuzzyAcronym returns acronym expansions within maxEdit edit distance
// of term. Terms shorter than MinFuzzyTermLength and stop words are
// excluded. Lookup is case-insensitive.
func FindFuzzyAcronym(term string, maxEdit int) []string {
	lower := strings.ToLower(strings.TrimSpace(term))
	if len(lower) < MinFuzzyTermLength || stopWords[lower] {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for acr, expansions := range acronymMap {
		if _, ok := levenshteinWithinThreshold(lower, acr, maxEdit); ok {
			for _, e := range expansions {
				if !seen[e] {
					seen[e] = true
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// CorrectTypo returns the canonical form of word from COMMON_TYPOS, or
// ("", false) if word is not a known typo.
func CorrectTypo(word string) (string, bool) {
	canonical, ok := commonTypos[strings.ToLower(strings.TrimSpace(word))]
	return canonical, ok
}

// ExpandOptions controls ExpandQuery behavior.
type ExpandOptions struct {
	Enabled          bool // ENABLE_FUZZY_MATCH
	IncludeAcronyms  bool
	IncludeFuzzy     bool
}

// DefaultExpandOptions mirrors the spec defaults: fuzzy matching on,
// acronym and typo expansion both included.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{Enabled: true, IncludeAcronyms: true, IncludeFuzzy: true}
}

// ExpandedQuery is the result of ExpandQuery.
type ExpandedQuery struct {
	Original      string
	Expanded      string
	Expansions    []string
	AcronymsFound []string
	FuzzyMatches  []string
}

// ExpandQuery rewrites q into an expanded form carrying acronym expansions
// and typo corrections, deduplicated. When opts.Enabled is false (the
// ENABLE_FUZZY_MATCH flag), returns the identity expansion.
func ExpandQuery(q string, opts ExpandOptions) ExpandedQuery {
	result := ExpandedQuery{Original: q, Expanded: q}
	if !opts.Enabled {
		return result
	}

	words := strings.Fields(q)
	seenExpansions := make(map[string]bool)

	for _, w := range words {
		clean := strings.Trim(w, `.,!?;:"'()`)
		if clean == "" {
			continue
		}

		if opts.IncludeAcronyms {
			if expansions, ok := acronymMap[strings.ToLower(clean)]; ok {
				result.AcronymsFound = append(result.AcronymsFound, clean)
				for _, e := range expansions {
					if !seenExpansions[e] {
						seenExpansions[e] = true
						result.Expansions = append(result.Expansions, e)
					}
				}
			} else if fuzzyExp := FindFuzzyAcronym(clean, MaxEditDistance); len(fuzzyExp) > 0 {
				for _, e := range fuzzyExp {
					if !seenExpansions[e] {
						seenExpansions[e] = true
						result.Expansions = append(result.Expansions, e)
					}
				}
			}
		}

		if opts.IncludeFuzzy {
			if canonical, ok := CorrectTypo(clean); ok {
				result.FuzzyMatches = append(result.FuzzyMatches, canonical)
			}
		}
	}

	if len(result.Expansions) > 0 {
		result.Expanded = q + " " + strings.Join(result.Expansions, " ")
	}

	log.Debug("expanded query", "original", q, "acronyms", len(result.AcronymsFound), "fuzzy", len(result.FuzzyMatches))
	return result
}
