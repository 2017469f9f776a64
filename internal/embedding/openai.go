package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.  Ollama
// serves the same API under /v1.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// OpenAI uses an OpenAI-compatible API for embeddings.
type OpenAI struct {
	client    *openai.Client
	model     string
	batchSize int
	dim       int
}

// NewOpenAI creates an embedder.  An empty model selects
// text-embedding-3-small.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(c),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
}

func (e *OpenAI) Name() string { return "openai-" + e.model }

// Prepare is a no-op; the model is pre-trained.
func (e *OpenAI) Prepare(context.Context, []string) error { return nil }

// Dimension is known after the first successful call.
func (e *OpenAI) Dimension() int { return e.dim }

// EmbedBatch sends texts in batches and returns L2-normalised vectors in
// input order.
func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		if len(resp.Data) != end-start {
			return nil, errors.New("embedding count does not match input count")
		}
		data := resp.Data
		sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, d := range data {
			v := make([]float64, len(d.Embedding))
			for i, x := range d.Embedding {
				v[i] = float64(x)
			}
			normalize(v)
			if e.dim == 0 {
				e.dim = len(v)
			}
			out = append(out, v)
		}
	}
	return out, nil
}
