package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrUnavailable indicates the model server could not be reached.
	ErrUnavailable = errors.New("language model server unavailable")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("language model request timed out")

	// ErrEmptyResponse indicates the model answered with no text.
	ErrEmptyResponse = errors.New("language model returned an empty response")

	// ErrRetryExhausted indicates all retry attempts failed.
	ErrRetryExhausted = errors.New("language model retry attempts exhausted")
)

// Client defines the text-completion call used by the triage service: a
// single formatted prompt in, a single free-text answer out.
type Client interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	// Available reports whether the model server answers at all.
	Available(ctx context.Context) bool
}

// Config holds the settings shared by the client implementations.
type Config struct {
	Provider    string
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
}

// New builds the client selected by cfg.Provider ("ollama" or "openai").
func New(cfg Config, observer Observer) (Client, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(cfg, observer), nil
	case "openai":
		return NewOpenAIClient(cfg, observer), nil
	default:
		return nil, errors.New("unknown llm provider: " + cfg.Provider)
	}
}

// retryDelay is the wait before the first retry; it doubles per retry.
var retryDelay = 250 * time.Millisecond

// StatusError is a non-2xx answer from the model server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model server returned status %d: %s", e.Code, e.Body)
}

// complete runs call up to 1+cfg.MaxRetries times, reports the outcome to
// observer and maps the failure onto the package errors.
func complete(ctx context.Context, provider string, cfg Config, observer Observer, call func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	var (
		text     string
		err      error
		attempts int
	)
	delay := retryDelay
	for {
		attempts++
		text, err = call(ctx)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil || attempts > cfg.MaxRetries || permanent(err) || !wait(ctx, delay) {
			break
		}
		delay *= 2
	}
	err = classify(ctx, err)

	observer.OnCallComplete(CallEvent{
		Provider:  provider,
		Model:     cfg.Model,
		LatencyMs: since(start),
		Attempts:  attempts,
		Success:   err == nil,
		ErrorCode: errorCode(err),
	})

	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable), errors.Is(err, ErrEmptyResponse), permanent(err):
		return "", err
	default:
		return "", fmt.Errorf("%w: %v", ErrRetryExhausted, err)
	}
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// permanent reports client errors a retry cannot fix.  Rate limiting and
// request timeouts are retried.
func permanent(err error) bool {
	var (
		code   int
		se     *StatusError
		apiErr *openai.APIError
		reqErr *openai.RequestError
	)
	switch {
	case errors.As(err, &se):
		code = se.Code
	case errors.As(err, &apiErr):
		code = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		code = reqErr.HTTPStatusCode
	}
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		return false
	}
	return code >= 400 && code < 500
}

func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}
	return err
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrEmptyResponse):
		return "EMPTY"
	default:
		return "UNKNOWN"
	}
}

func since(start time.Time) int64 { return time.Since(start).Milliseconds() }
