package scoring

import (
	"math"
	"testing"
	"time"
)

func TestWeightsSumToOne(t *testing.T) {
	if !WeightsSumToOne() {
		t.Fatalf("expected composite weights to sum to 1.0")
	}
}

func TestScoreWithinRange(t *testing.T) {
	now := time.Now()
	in := Input{
		Stability:      10,
		Difficulty:     5,
		LastReview:     &now,
		AccessCount:    20,
		ImportanceBase: 0.8,
		ImportanceTier: "critical",
		SimilarityPct:  98,
		LastCited:      &now,
	}
	b := Score(in)
	if b.CompositeScore < 0 || b.CompositeScore > 1 {
		t.Fatalf("composite score out of range: %v", b.CompositeScore)
	}
}

func TestScoreZeroInputWithinRange(t *testing.T) {
	b := Score(Input{})
	if b.CompositeScore < 0 || b.CompositeScore > 1 {
		t.Fatalf("composite score out of range for zero input: %v", b.CompositeScore)
	}
}

func TestTemporalFactorNoTimestamp(t *testing.T) {
	b := Score(Input{})
	if b.Temporal != 0.5 {
		t.Fatalf("expected 0.5 temporal factor with no last_review, got %v", b.Temporal)
	}
}

func TestUsageFactorBounds(t *testing.T) {
	zero := Score(Input{AccessCount: 0})
	if zero.Usage != 0 {
		t.Fatalf("expected 0 usage at count=0, got %v", zero.Usage)
	}
	ten := Score(Input{AccessCount: 10})
	if ten.Usage != 1.0 {
		t.Fatalf("expected 1.0 usage at count=10, got %v", ten.Usage)
	}
	over := Score(Input{AccessCount: 50})
	if over.Usage != 1.0 {
		t.Fatalf("expected usage to clamp at 1.0, got %v", over.Usage)
	}
}

func TestImportanceFactorDefaultsAndTiers(t *testing.T) {
	normal := Score(Input{ImportanceTier: "normal"})
	unknown := Score(Input{ImportanceTier: "not-a-real-tier"})
	if normal.Importance != unknown.Importance {
		t.Fatalf("expected unknown tier to default to normal multiplier")
	}
	constitutional := Score(Input{ImportanceTier: "constitutional", ImportanceBase: 0.5})
	if constitutional.Importance <= normal.Importance {
		t.Fatalf("expected constitutional tier to score higher than normal")
	}
}

func TestCitationFactorFallbackChain(t *testing.T) {
	now := time.Now()
	cited := Score(Input{LastCited: &now})
	accessed := Score(Input{LastAccessed: &now})
	if math.Abs(cited.Citation-accessed.Citation) > 1e-9 {
		t.Fatalf("expected equivalent recency to score identically regardless of fallback source")
	}
	noTimestamp := Score(Input{})
	if noTimestamp.Citation != 0.5 {
		t.Fatalf("expected 0.5 citation factor with no timestamp, got %v", noTimestamp.Citation)
	}
}

func TestCitationFactorBeyondMaxDaysIsZero(t *testing.T) {
	old := time.Now().Add(-400 * 24 * time.Hour)
	b := Score(Input{LastCited: &old})
	if b.Citation != 0 {
		t.Fatalf("expected 0 citation factor beyond CITATION_MAX_DAYS, got %v", b.Citation)
	}
}

func TestApplyScoringSortsDescending(t *testing.T) {
	inputs := []Input{
		{SimilarityPct: 10},
		{SimilarityPct: 90},
		{SimilarityPct: 50},
	}
	order, breakdowns := ApplyScoring(inputs)
	if len(order) != 3 {
		t.Fatalf("expected 3 ordered indices, got %d", len(order))
	}
	for i := 1; i < len(order); i++ {
		if breakdowns[order[i-1]].CompositeScore < breakdowns[order[i]].CompositeScore {
			t.Fatalf("expected descending order by composite score")
		}
	}
}
