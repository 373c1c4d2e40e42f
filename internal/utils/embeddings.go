package utils

import (
	"fmt"
	"math"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// A zero-magnitude vector compares as 0 to everything.
func CosineSimilarity(vec1, vec2 []float32) (float32, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension (%d != %d)", len(vec1), len(vec2))
	}

	var dot, sumSq1, sumSq2 float64
	for i := range vec1 {
		dot += float64(vec1[i]) * float64(vec2[i])
		sumSq1 += float64(vec1[i]) * float64(vec1[i])
		sumSq2 += float64(vec2[i]) * float64(vec2[i])
	}

	if sumSq1 == 0 || sumSq2 == 0 {
		return 0, nil
	}

	return float32(dot / (math.Sqrt(sumSq1) * math.Sqrt(sumSq2))), nil
}
