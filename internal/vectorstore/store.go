package vectorstore

import (
	"context"
	"math"

	"triage-assistant/pkg"
)

// Store persists vectors and supports similarity search.
type Store interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []pkg.Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]pkg.SearchResult, error)
	Clear(ctx context.Context) error
}

// Persister is implemented by stores that must be flushed to durable
// storage explicitly.
type Persister interface {
	Persist() error
}

// Cosine returns the cosine similarity of a and b, or 0 when either is the
// zero vector or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
