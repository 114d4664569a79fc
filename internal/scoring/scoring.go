// Package scoring implements the five-factor composite ranking applied
// after RRF fusion: temporal (FSRS retrievability), usage, importance,
// pattern, and citation recency. Style (clamped-float per-factor helpers,
// additive bonuses capped before return) is grounded on
// iammorganparry-clive's apps/memory/internal/search/hybrid.go
// (Retrievability, ContextMatchBonus, setOverlapRatio Jaccard helper).
package scoring

import (
	"strings"
	"time"

	"github.com/speckit/cogmem/internal/fsrs"
	"github.com/speckit/cogmem/internal/logging"
)

var log = logging.GetLogger("scoring")

// Weights, fixed and summing to 1.0.
const (
	WeightTemporal   = 0.25
	WeightUsage      = 0.15
	WeightImportance = 0.25
	WeightPattern    = 0.20
	WeightCitation   = 0.15
)

// CitationMaxDays is the horizon beyond which the citation factor floors
// to 0.
const CitationMaxDays = 365.0

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Input is the per-candidate data the composite scorer needs. Any field may
// be a zero value to represent "unknown"; the five factor functions treat
// that as documented in spec(4.7).
type Input struct {
	Stability      float64
	Difficulty     float64
	LastReview     *time.Time
	AccessCount    int
	ImportanceBase float64 // falsy (<=0) defaults to 0.5
	ImportanceTier string
	SimilarityPct  float64 // 0-100, from the fused retrieval stage
	Title          string
	QueryTitleHint string
	AnchorOverlap  bool
	MemoryType     string
	QueryIntent    string
	LastCited      *time.Time
	LastAccessed   *time.Time
	UpdatedAt      time.Time
}

// Breakdown carries each factor's contribution alongside the total.
type Breakdown struct {
	Temporal        float64
	Usage           float64
	Importance      float64
	Pattern         float64
	Citation        float64
	CompositeScore  float64
}

// intentKeywords is the closed set of memory_type -> intent keyword hints
// used by the pattern factor's bonus term.
var intentKeywords = map[string][]string{
	"bugfix":  {"fix", "bug", "error", "crash"},
	"feature": {"add", "implement", "feature", "support"},
	"refactor": {"refactor", "cleanup", "restructure"},
	"security": {"security", "vulnerability", "auth", "cve"},
}

// temporalFactor is FSRS retrievability at the time of scoring; 0.5 when no
// last_review timestamp is present.
func temporalFactor(in Input) float64 {
	if in.LastReview == nil {
		return 0.5
	}
	days := time.Since(*in.LastReview).Hours() / 24.0
	return clamp01(fsrs.Retrievability(in.Stability, days))
}

// usageFactor: 0 at count=0, 1.0 at count>=10, linear in between via
// clamp((1 + 0.05*count - 1)/0.5, 0, 1) = clamp(0.1*count, 0, 1).
func usageFactor(in Input) float64 {
	v := (1 + 0.05*float64(in.AccessCount) - 1) / 0.5
	return clamp01(v)
}

// importanceFactor: clamp(base * tier_mult / 2.0, 0, 1); base falsy
// defaults to 0.5.
func importanceFactor(in Input) float64 {
	base := in.ImportanceBase
	if base <= 0 {
		base = 0.5
	}
	mult := tierMultiplier(in.ImportanceTier)
	return clamp01(base * mult / 2.0)
}

// tierMultiplier is duplicated here (rather than imported from database) to
// keep scoring free of a storage-layer dependency; the closed set and
// values must stay identical to database.ImportanceMultipliers.
func tierMultiplier(tier string) float64 {
	switch tier {
	case "constitutional":
		return 2.0
	case "critical":
		return 1.5
	case "important":
		return 1.3
	case "temporary":
		return 0.6
	case "deprecated":
		return 0.1
	default:
		return 1.0
	}
}

// patternFactor: base 0.5*similarity/100 plus small bonuses for exact/
// partial title match, anchor overlap, intent keyword match, and a
// semantic-threshold bonus at similarity >= 95%.
func patternFactor(in Input) float64 {
	score := 0.5 * in.SimilarityPct / 100.0

	if in.Title != "" && in.QueryTitleHint != "" {
		lowerTitle := strings.ToLower(in.Title)
		lowerHint := strings.ToLower(in.QueryTitleHint)
		if lowerTitle == lowerHint {
			score += 0.15
		} else if strings.Contains(lowerTitle, lowerHint) || strings.Contains(lowerHint, lowerTitle) {
			score += 0.08
		}
	}

	if in.AnchorOverlap {
		score += 0.05
	}

	if keywords, ok := intentKeywords[in.MemoryType]; ok && in.QueryIntent != "" {
		intent := strings.ToLower(in.QueryIntent)
		for _, kw := range keywords {
			if strings.Contains(intent, kw) {
				score += 0.05
				break
			}
		}
	}

	if in.SimilarityPct >= 95.0 {
		score += 0.10
	}

	return clamp01(score)
}

// citationFactor: inverse-linear decay 1/(1+0.1*days) from last_cited,
// falling back to last_accessed then updated_at; 0 beyond CITATION_MAX_DAYS;
// 0.5 when no timestamp is present at all.
func citationFactor(in Input) float64 {
	var ref *time.Time
	switch {
	case in.LastCited != nil:
		ref = in.LastCited
	case in.LastAccessed != nil:
		ref = in.LastAccessed
	case !in.UpdatedAt.IsZero():
		ref = &in.UpdatedAt
	default:
		return 0.5
	}

	days := time.Since(*ref).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	if days >= CitationMaxDays {
		return 0
	}
	return clamp01(1.0 / (1.0 + 0.1*days))
}

// Score computes the composite score and per-factor breakdown for a single
// candidate.
func Score(in Input) Breakdown {
	b := Breakdown{
		Temporal:   temporalFactor(in),
		Usage:      usageFactor(in),
		Importance: importanceFactor(in),
		Pattern:    patternFactor(in),
		Citation:   citationFactor(in),
	}
	b.CompositeScore = clamp01(
		b.Temporal*WeightTemporal +
			b.Usage*WeightUsage +
			b.Importance*WeightImportance +
			b.Pattern*WeightPattern +
			b.Citation*WeightCitation,
	)
	return b
}

// ApplyScoring scores every input and returns indices sorted by descending
// composite score (stable for equal scores), alongside each breakdown.
func ApplyScoring(inputs []Input) ([]int, []Breakdown) {
	breakdowns := make([]Breakdown, len(inputs))
	order := make([]int, len(inputs))
	for i, in := range inputs {
		breakdowns[i] = Score(in)
		order[i] = i
	}

	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && breakdowns[order[j-1]].CompositeScore < breakdowns[order[j]].CompositeScore {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}

	log.Debug("applied composite scoring", "count", len(inputs))
	return order, breakdowns
}

// ScoreOptions is not read by Score or ApplyScoring.
type ScoreOptions struct {
	// LegacySixFactor marks a caller that uses ScoreLegacy, which adds a
	// sixth "recency of creation" factor from an earlier scoring revision.
	// That factor is returned separately and does not enter CompositeScore.
	// Opt-in only; new retrieval paths must leave this false.
	LegacySixFactor bool
}

// ScoreLegacy computes the five-factor breakdown plus a sixth "freshness"
// factor (inverse-linear decay from CreatedAt, unweighted into
// CompositeScore's 5-factor formula) for callers that explicitly opted into
// ScoreOptions.LegacySixFactor. Not used by any new retrieval path.
func ScoreLegacy(in Input, createdAt time.Time) (Breakdown, float64) {
	b := Score(in)
	days := time.Since(createdAt).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	freshness := clamp01(1.0 / (1.0 + 0.05*days))
	return b, freshness
}

// WeightsSumToOne is a guard used by tests and the DESIGN.md invariant
// checklist; weights are compile-time constants so this is always true,
// but it documents the invariant explicitly at the type level.
func WeightsSumToOne() bool {
	sum := WeightTemporal + WeightUsage + WeightImportance + WeightPattern + WeightCitation
	return sum > 0.999999 && sum < 1.000001
}
