package rag

import (
	"fmt"
	"math"
	"sort"
)

// ScoredIndex is one ranked result of TopK, pointing back into the
// candidate slice it was computed from.
type ScoredIndex struct {
	Index int
	Score float64
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|). Vectors of
// mismatched dimensionality are rejected rather than truncated.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensionality mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TopK ranks every candidate vector against the query by cosine
// similarity and returns the k best, descending. Ties keep storage
// order. The scan is exhaustive; swap in an indexed structure behind
// this signature if the corpus outgrows it.
func TopK(query []float32, candidates [][]float32, k int) ([]ScoredIndex, error) {
	if k <= 0 {
		return nil, nil
	}

	scored := make([]ScoredIndex, 0, len(candidates))
	for i, candidate := range candidates {
		score, err := CosineSimilarity(query, candidate)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		scored = append(scored, ScoredIndex{Index: i, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
