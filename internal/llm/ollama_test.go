package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{Provider: "ollama", Endpoint: endpoint, Model: "qwen2.5:3b", MaxRetries: 1}
}

func TestOllamaClient_Summarize_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:3b", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "prompt text", req.Prompt)

		json.NewEncoder(w).Encode(generateResponse{Response: "**Resumo de Triagem**"})
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL), NoopObserver{})
	text, err := client.Summarize(context.Background(), "prompt text")

	require.NoError(t, err)
	assert.Equal(t, "**Resumo de Triagem**", text)
}

func TestOllamaClient_Summarize_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		json.NewEncoder(w).Encode(generateResponse{Response: "late"})
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL), NoopObserver{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Summarize(ctx, "test")

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaClient_Summarize_Unavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1") // nothing listening
	cfg.MaxRetries = 0

	client := NewOllamaClient(cfg, NoopObserver{})
	_, err := client.Summarize(context.Background(), "test")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaClient_Summarize_RetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL), NoopObserver{})
	text, err := client.Summarize(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Summarize_ClientErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 3
	_, err := NewOllamaClient(cfg, nil).Summarize(context.Background(), "test")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.NotErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOllamaClient_Summarize_RateLimitIsRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	text, err := NewOllamaClient(testConfig(srv.URL), nil).Summarize(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Summarize_BackoffStopsAtDeadline(t *testing.T) {
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Minute

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 5
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err := NewOllamaClient(cfg, nil).Summarize(ctx, "test")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(begin), 5*time.Second)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOllamaClient_Summarize_RetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL), NoopObserver{})
	_, err := client.Summarize(context.Background(), "test")

	assert.ErrorIs(t, err, ErrRetryExhausted)
}

func TestOllamaClient_Summarize_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "   "})
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	client := NewOllamaClient(cfg, NoopObserver{})
	_, err := client.Summarize(context.Background(), "test")

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaClient_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/version" {
			w.Write([]byte(`{"version":"0.5.7"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	assert.True(t, NewOllamaClient(testConfig(srv.URL), nil).Available(context.Background()))
	assert.False(t, NewOllamaClient(testConfig("http://127.0.0.1:1"), nil).Available(context.Background()))
}

type recordingObserver struct{ events []CallEvent }

func (o *recordingObserver) OnCallComplete(e CallEvent) { o.events = append(o.events, e) }

func TestOllamaClient_ReportsCallToObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := NewOllamaClient(testConfig(srv.URL), obs).Summarize(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, obs.events, 1)
	assert.True(t, obs.events[0].Success)
	assert.Equal(t, "ollama", obs.events[0].Provider)
	assert.Equal(t, 1, obs.events[0].Attempts)
}
