package app

import (
	"math"
	"sort"
)

type scoredChunk struct {
	chunkID    uint
	documentID uint
	pageNumber *int
	score      float32
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// topKScored sorts scored by score descending (lower chunk id first on ties) and keeps at most k.
func topKScored(scored []scoredChunk, k int) []scoredChunk {
	if k <= 0 || len(scored) == 0 {
		return nil
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunkID < scored[j].chunkID
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}
