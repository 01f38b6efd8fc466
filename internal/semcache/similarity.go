package semcache

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch means two embeddings of different dimensionality
// were compared. That is a deployment error (mixed embedding models),
// never a normal miss.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero vector scores 0 against anything: the cosine is undefined
// there and a false miss is safer than a false hit.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
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
