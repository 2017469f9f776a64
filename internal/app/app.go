package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"triage-assistant/internal/cache"
	"triage-assistant/internal/chunker"
	"triage-assistant/internal/config"
	"triage-assistant/internal/core"
	"triage-assistant/internal/db"
	"triage-assistant/internal/embedding"
	"triage-assistant/internal/indexer"
	"triage-assistant/internal/llm"
	"triage-assistant/internal/vectorstore"
)

// NewLogger creates the process logger writing text records to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// SummaryFeed streams IDs of sessions whose summary just became ready.
type SummaryFeed interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// App holds the wired triage service and the resources behind it.
type App struct {
	Triage *core.TriageService
	// Feed is nil when the configured store cannot announce summaries.
	Feed SummaryFeed

	closers []func() error
}

// Close releases database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Open wires the session store, notifier, language model and triage service
// selected by cfg.
func Open(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	tmpl, err := core.LoadTemplate(cfg.Analysis.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("loading analysis template: %w", err)
	}
	client, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.APIKey(),
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, llm.NewLogObserver(logger))
	if err != nil {
		return nil, err
	}

	a := &App{}
	var (
		store    core.SessionStore
		notifier core.Notifier
	)
	switch cfg.Store.Type {
	case "sqlite", "postgres":
		dialect := db.SQLite
		if cfg.Store.Type == "postgres" {
			dialect = db.Postgres
		}
		conn, err := db.Open(ctx, dialect, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		store = db.NewRepository(conn, dialect)
		if dialect == db.Postgres {
			n := db.NewNotifier(conn, cfg.Store.DSN, cfg.Notify.Channel, logger)
			notifier, a.Feed = n, n
		}
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(cfg.Store.RedisAddr, "redis://")})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		store = cache.NewRedisStore(rdb, cfg.SessionTTL())
		n := cache.NewRedisNotifier(rdb, cfg.Notify.Channel)
		notifier, a.Feed = n, n
	case "memory":
		store = cache.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}

	a.Triage = core.NewTriageService(store, client, core.Options{
		Template: tmpl,
		Timeout:  cfg.AnalysisTimeout(),
		Notifier: notifier,
		Logger:   logger,
	})
	logger.Info("triage service ready",
		"store", cfg.Store.Type,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"live_feed", a.Feed != nil,
	)
	return a, nil
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Index.Embedder {
	case "tfidf":
		return embedding.NewTFIDF(), nil
	case "openai":
		o := cfg.Index.OpenAI
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL:   o.BaseURL,
			APIKey:    os.Getenv(o.APIKeyEnv),
			Model:     o.Model,
			BatchSize: o.BatchSize,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Index.Embedder)
	}
}

func newQdrant(cfg *config.AppConfig) *vectorstore.Qdrant {
	q := cfg.Index.Qdrant
	return vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        q.URL,
		APIKey:     q.APIKey,
		Collection: q.Collection,
		Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
	})
}

// NewIndexer wires a fresh indexer for a build.
func NewIndexer(cfg *config.AppConfig, logger *slog.Logger) (*indexer.Indexer, error) {
	c, err := chunker.NewRecursiveChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	emb, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	var store vectorstore.Store
	switch cfg.Index.Backend {
	case "file":
		store = vectorstore.NewFileStore(cfg.Index.Path)
	case "qdrant":
		store = newQdrant(cfg)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
	return &indexer.Indexer{Chunker: c, Embedder: emb, Store: store, Logger: logger}, nil
}

// OpenIndexer reopens a built index for queries.
func OpenIndexer(cfg *config.AppConfig, logger *slog.Logger) (*indexer.Indexer, error) {
	emb, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Index.Backend {
	case "file":
		store, err := vectorstore.OpenFileStore(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		if err := indexer.Restore(store, emb); err != nil {
			return nil, err
		}
		return &indexer.Indexer{Embedder: emb, Store: store, Logger: logger}, nil
	case "qdrant":
		if _, ok := emb.(*embedding.TFIDF); ok {
			return nil, errors.New("the tfidf vocabulary is only kept with the file backend; query qdrant with the openai embedder")
		}
		return &indexer.Indexer{Embedder: emb, Store: newQdrant(cfg), Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}
