package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-compatible chat completion API.  Pointing
// Endpoint at Ollama's /v1 path serves a local model through the same code.
type OpenAIClient struct {
	client   *openai.Client
	cfg      Config
	observer Observer
}

// NewOpenAIClient constructs an OpenAI-backed client.  An empty model falls
// back to a small default.
func NewOpenAIClient(cfg Config, observer Observer) *OpenAIClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(oc),
		cfg:      cfg,
		observer: observer,
	}
}

// Summarize sends the prompt as a single user message and returns the
// assistant's response.
func (c *OpenAIClient) Summarize(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	}
	return complete(ctx, "openai", c.cfg, c.observer, func(ctx context.Context) (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// Available lists models to check the server answers.
func (c *OpenAIClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := c.client.ListModels(ctx)
	return err == nil
}
