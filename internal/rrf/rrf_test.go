package rrf

import "testing"

func TestFuseSingleSource(t *testing.T) {
	sources := map[Source][]RankedItem{
		SourceFTS: RankFromOrdered([]string{"a", "b", "c"}),
	}
	out := Fuse(sources)
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[0].ID != "a" {
		t.Fatalf("expected best rank first, got %s", out[0].ID)
	}
	if !out[0].InFTS || out[0].InVector {
		t.Fatalf("expected only InFTS set for FTS-only source")
	}
}

func TestFuseCombinesMultipleSources(t *testing.T) {
	sources := map[Source][]RankedItem{
		SourceVector: RankFromOrdered([]string{"x", "y", "z"}),
		SourceFTS:    RankFromOrdered([]string{"y", "x", "z"}),
	}
	out := Fuse(sources)
	if len(out) != 3 {
		t.Fatalf("expected 3 deduplicated results, got %d", len(out))
	}
	// x and y both rank 0/1 across sources and should score higher than z
	// which is always last.
	for _, f := range out {
		if f.ID == "z" && f.RRFScore >= out[0].RRFScore {
			t.Fatalf("expected z to score lower than the top result")
		}
	}
}

func TestFuseDeterministicTieBreak(t *testing.T) {
	sources := map[Source][]RankedItem{
		SourceVector: {{ID: "b", Rank: 0}, {ID: "a", Rank: 0}},
	}
	out := Fuse(sources)
	if out[0].ID != "a" {
		t.Fatalf("expected ascending-id tie break, got %s first", out[0].ID)
	}
}

func TestFuseEmptySourceIsHarmless(t *testing.T) {
	sources := map[Source][]RankedItem{
		SourceVector: RankFromOrdered([]string{"a"}),
		SourceGraph:  {},
	}
	out := Fuse(sources)
	if len(out) != 1 {
		t.Fatalf("expected empty graph source to contribute nothing, got %d results", len(out))
	}
}

func TestMultiConceptSearchSumOfRanks(t *testing.T) {
	rankings := [][]RankedItem{
		RankFromOrdered([]string{"doc1", "doc2"}),
		RankFromOrdered([]string{"doc2", "doc1"}),
	}
	out := MultiConceptSearch(rankings)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	// doc1 and doc2 each appear once at rank 0 and once at rank 1, so their
	// scores should be equal; tie-break falls to ascending id.
	if out[0].RRFScore != out[1].RRFScore {
		t.Fatalf("expected symmetric scores, got %v vs %v", out[0].RRFScore, out[1].RRFScore)
	}
	if out[0].ID != "doc1" {
		t.Fatalf("expected tie-break to favor doc1, got %s", out[0].ID)
	}
}

func TestRRFConstant(t *testing.T) {
	if K != 60.0 {
		t.Fatalf("expected RRF k=60, got %v", K)
	}
}
