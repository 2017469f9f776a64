package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ollamaClient asks a local Ollama instance for one non-streamed completion.
type ollamaClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewOllamaClient creates a Client for the Ollama HTTP API.  The overall
// request deadline comes from the caller's context.
func NewOllamaClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:3b"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &ollamaClient{cfg: cfg, http: &http.Client{}, observer: observer}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *ollamaClient) Summarize(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Model: c.cfg.Model, Prompt: prompt}
	if c.cfg.Temperature > 0 || c.cfg.MaxTokens > 0 {
		req.Options = map[string]any{}
		if c.cfg.Temperature > 0 {
			req.Options["temperature"] = c.cfg.Temperature
		}
		if c.cfg.MaxTokens > 0 {
			req.Options["num_predict"] = c.cfg.MaxTokens
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding generate request: %w", err)
	}
	return complete(ctx, "ollama", c.cfg, c.observer, func(ctx context.Context) (string, error) {
		return c.generate(ctx, body)
	})
}

func (c *ollamaClient) generate(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}
	return out.Response, nil
}

// Available asks the server for its version.
func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
