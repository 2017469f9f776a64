package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrNotPrepared is returned by embedders used before Prepare.
var ErrNotPrepared = errors.New("embedder not prepared")

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Embed embeds a single text.
func Embed(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.New("embedder returned no vector")
	}
	return vecs[0], nil
}

// normalize scales v to unit length in place.
func normalize(v []float64) {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
}
