package fuzzy

import "testing"

func TestLevenshteinSymmetric(t *testing.T) {
	cases := [][2]string{{"kitten", "sitting"}, {"rrf", "rff"}, {"", "abc"}, {"hello", "hello"}}
	for _, c := range cases {
		if Levenshtein(c[0], c[1]) != Levenshtein(c[1], c[0]) {
			t.Fatalf("levenshtein not symmetric for %q/%q", c[0], c[1])
		}
	}
}

func TestLevenshteinIdentity(t *testing.T) {
	if d := Levenshtein("anything", "anything"); d != 0 {
		t.Fatalf("expected 0, got %d", d)
	}
}

func TestLevenshteinEmpty(t *testing.T) {
	if d := Levenshtein("", "abcdef"); d != 6 {
		t.Fatalf("expected len(b)=6, got %d", d)
	}
	if d := Levenshtein("abcdef", ""); d != 6 {
		t.Fatalf("expected len(a)=6, got %d", d)
	}
}

func TestLevenshteinCaseInsensitive(t *testing.T) {
	if d := Levenshtein("RRF", "rrf"); d != 0 {
		t.Fatalf("expected case-insensitive match, got distance %d", d)
	}
}

func TestAcronymMapSize(t *testing.T) {
	if len(acronymMap) < 30 {
		t.Fatalf("expected at least 30 acronym entries, got %d", len(acronymMap))
	}
}

func TestFindFuzzyAcronymShortTermExcluded(t *testing.T) {
	if got := FindFuzzyAcronym("ai", MaxEditDistance); got != nil {
		t.Fatalf("expected short term to be excluded, got %v", got)
	}
}

func TestFindFuzzyAcronymMatchesTypo(t *testing.T) {
	got := FindFuzzyAcronym("bm26", 1) // one char off from bm25
	if len(got) == 0 {
		t.Fatalf("expected a fuzzy match for near-miss acronym")
	}
}

func TestCorrectTypo(t *testing.T) {
	canon, ok := CorrectTypo("teh")
	if !ok || canon != "the" {
		t.Fatalf("expected teh -> the, got %q ok=%v", canon, ok)
	}
	if _, ok := CorrectTypo("correctlyspelled"); ok {
		t.Fatalf("did not expect a typo match for a correctly spelled word")
	}
}

func TestExpandQueryDisabled(t *testing.T) {
	result := ExpandQuery("what is rrf", ExpandOptions{Enabled: false})
	if result.Expanded != result.Original {
		t.Fatalf("expected identity expansion when disabled, got %q", result.Expanded)
	}
}

func TestExpandQueryAcronym(t *testing.T) {
	result := ExpandQuery("explain rrf scoring", DefaultExpandOptions())
	if len(result.AcronymsFound) == 0 {
		t.Fatalf("expected rrf to be recognized as an acronym")
	}
	if len(result.Expansions) == 0 {
		t.Fatalf("expected at least one expansion")
	}
}
