package rag

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero magnitude a", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero magnitude b", []float32{1, 1}, []float32{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9}
	b := []float32{-0.1, 0.4, 0.8, 0.5}

	ab, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := CosineSimilarity(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); err == nil {
		t.Error("expected error for mismatched dimensions, got nil")
	}
}

func TestTopK(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},          // orthogonal, score 0
		{1, 0},          // identical, score 1
		{0.7071, 0.7071}, // 45 degrees, score ~0.707
	}

	results, err := TopK(query, candidates, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("best match index = %d, want 1", results[0].Index)
	}
	if results[1].Index != 2 {
		t.Errorf("second match index = %d, want 2", results[1].Index)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted descending by score")
	}
}

func TestTopKBounds(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}, {0, 1}}

	// k larger than candidate count returns everything.
	results, err := TopK(query, candidates, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("result count = %d, want 2", len(results))
	}

	// k <= 0 returns nothing.
	results, err = TopK(query, candidates, 0)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("expected nil results for k=0, got %v", results)
	}

	// Empty corpus yields empty results, not an error.
	results, err = TopK(query, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for empty corpus, got %v", results)
	}
}

func TestTopKStableTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{2, 0}, // same direction as query
		{3, 0}, // same direction, same score
		{4, 0},
	}

	results, err := TopK(query, candidates, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("tie broke storage order: position %d has index %d", i, r.Index)
		}
	}
}

func TestTopKDimensionMismatch(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := [][]float32{{1, 0}}

	if _, err := TopK(query, candidates, 1); err == nil {
		t.Error("expected error for mismatched candidate dimensions, got nil")
	}
}
