package utils

import (
	"fmt"
	"math"
)

// Dot calculates the dot product of two equal-length vectors.
func Dot(vec1, vec2 []float32) float32 {
	var product float32
	for i := range vec1 {
		product += vec1[i] * vec2[i]
	}
	return product
}

// Norm calculates the L2 norm (magnitude) of a vector.
func Norm(vec []float32) float32 {
	var sumOfSquares float32
	for _, val := range vec {
		sumOfSquares += val * val
	}
	return float32(math.Sqrt(float64(sumOfSquares)))
}

// CosineScores computes the cosine similarity between a query vector and every
// row of a candidate matrix in one pass. Row norms are precomputed at catalog
// load time, so scoring costs one dot product per row.
func CosineScores(query []float32, rows [][]float32, rowNorms []float32) ([]float32, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if len(rows) != len(rowNorms) {
		return nil, fmt.Errorf("rows and norms length mismatch: %d vs %d", len(rows), len(rowNorms))
	}

	queryNorm := Norm(query)
	scores := make([]float32, len(rows))
	for i, row := range rows {
		if len(row) != len(query) {
			return nil, fmt.Errorf("row %d has dimension %d, query has %d", i, len(row), len(query))
		}
		if queryNorm == 0 || rowNorms[i] == 0 {
			scores[i] = 0
			continue
		}
		scores[i] = Dot(query, row) / (queryNorm * rowNorms[i])
	}
	return scores, nil
}
