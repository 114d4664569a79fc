package vectorindex

import "testing"

func TestInsertAndSearchReturnsNearest(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "a", Vector: []float64{1, 0, 0}})
	_ = idx.Insert(Point{ID: "b", Vector: []float64{0, 1, 0}})
	_ = idx.Insert(Point{ID: "c", Vector: []float64{0.9, 0.1, 0}})

	results, err := idx.Search([]float64{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Fatalf("expected exact match 'a' first, got %s", results[0].ID)
	}
	if results[1].ID != "c" {
		t.Fatalf("expected closest neighbor 'c' second, got %s", results[1].ID)
	}
}

func TestSimilarityClampedToZeroForOppositeVectors(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "opposite", Vector: []float64{-1, 0, 0}})

	results, err := idx.Search([]float64{1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Similarity < 0 {
		t.Fatalf("expected similarity clamped into [0,1], got %v", results[0].Similarity)
	}
	if results[0].Similarity != 0 {
		t.Fatalf("expected exactly 0 for perfectly opposite vectors, got %v", results[0].Similarity)
	}
}

func TestSearchTieBreaksByAscendingID(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "z", Vector: []float64{1, 0}})
	_ = idx.Insert(Point{ID: "a", Vector: []float64{1, 0}})

	results, _ := idx.Search([]float64{1, 0}, 2, nil)
	if results[0].ID != "a" {
		t.Fatalf("expected ascending-id tie break, got %s first", results[0].ID)
	}
}

func TestDeleteRemovesPoint(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "a", Vector: []float64{1, 0}})
	idx.Delete("a")
	if idx.Len() != 0 {
		t.Fatalf("expected index empty after delete, got %d", idx.Len())
	}
}

func TestUpdateReplacesVector(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "a", Vector: []float64{1, 0}})
	_ = idx.Update(Point{ID: "a", Vector: []float64{0, 1}})

	results, _ := idx.Search([]float64{0, 1}, 1, nil)
	if results[0].ID != "a" || results[0].Similarity < 0.99 {
		t.Fatalf("expected update to replace vector, got %+v", results[0])
	}
}

func TestSearchFiltersBySpecFolder(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "a", Vector: []float64{1, 0}, SpecFolder: "folder-x"})
	_ = idx.Insert(Point{ID: "b", Vector: []float64{1, 0}, SpecFolder: "folder-y"})

	results, _ := idx.Search([]float64{1, 0}, 10, &Filter{SpecFolder: "folder-x"})
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("expected only folder-x result, got %+v", results)
	}
}

func TestMultiConceptSearchFusesRankings(t *testing.T) {
	idx := New(0)
	_ = idx.Insert(Point{ID: "doc1", Vector: []float64{1, 0}})
	_ = idx.Insert(Point{ID: "doc2", Vector: []float64{0, 1}})

	out, err := idx.MultiConceptSearch([][]float64{{1, 0}, {0, 1}}, 2, nil)
	if err != nil {
		t.Fatalf("multi-concept search failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(out))
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	idx := New(3)
	if err := idx.Insert(Point{ID: "a", Vector: []float64{1, 0}}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}
