package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// LLMConfig selects and configures the language-model client.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"`
}

// StoreConfig selects where sessions live.
type StoreConfig struct {
	Type       string `yaml:"type"`
	DSN        string `yaml:"dsn"`
	RedisAddr  string `yaml:"redis_addr"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// NotifyConfig names the channel used to announce finished summaries.
type NotifyConfig struct {
	Channel string `yaml:"channel"`
}

// AnalysisConfig configures the analysis request.
type AnalysisConfig struct {
	TemplatePath string `yaml:"template_path"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
}

// KnowledgeBaseConfig configures the knowledge-base builder outputs.
type KnowledgeBaseConfig struct {
	Dir          string `yaml:"dir"`
	DatasetPath  string `yaml:"dataset_path"`
	TokenizerDir string `yaml:"tokenizer_dir"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig configures the vector-index builder.
type IndexConfig struct {
	Path         string               `yaml:"path"`
	ChunkSize    int                  `yaml:"chunk_size"`
	ChunkOverlap int                  `yaml:"chunk_overlap"`
	Embedder     string               `yaml:"embedder"`
	Backend      string               `yaml:"backend"`
	SanityQuery  string               `yaml:"sanity_query"`
	OpenAI       OpenAIEmbedderConfig `yaml:"openai"`
	Qdrant       QdrantConfig         `yaml:"qdrant"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	LLM           LLMConfig           `yaml:"llm"`
	Store         StoreConfig         `yaml:"store"`
	Notify        NotifyConfig        `yaml:"notify"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Index         IndexConfig         `yaml:"index"`
}

// AnalysisTimeout returns the configured bound on one analysis request.
func (c *AppConfig) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSecs) * time.Second
}

// SessionTTL returns how long idle sessions are kept by expiring stores.
func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.Store.TTLMinutes) * time.Minute
}

// APIKey reads the language-model key from the configured variable.
func (c *AppConfig) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Load reads .env (if present), then the config at path, then TRIAGE_*
// overrides.  A missing config file yields defaults.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	switch c.Store.Type {
	case "sqlite", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for postgres")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for redis")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)",
			c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Model == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.Model = "qwen2.5:3b"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 1
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.DSN == "" {
		cfg.Store.DSN = filepath.Join("data", "triage.db")
	}
	if cfg.Store.TTLMinutes == 0 {
		cfg.Store.TTLMinutes = 24 * 60
	}
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = "triage_ready"
	}
	if cfg.Analysis.TimeoutSecs == 0 {
		cfg.Analysis.TimeoutSecs = 120
	}
	if cfg.KnowledgeBase.Dir == "" {
		cfg.KnowledgeBase.Dir = "knowledge_base"
	}
	if cfg.KnowledgeBase.DatasetPath == "" {
		cfg.KnowledgeBase.DatasetPath = "fine_tuning_dataset.jsonl"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join("db", "index.gob")
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 500
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 50
	}
	if cfg.Index.Embedder == "" {
		cfg.Index.Embedder = "tfidf"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "file"
	}
	if cfg.Index.SanityQuery == "" {
		cfg.Index.SanityQuery = "cansaço e perda de interesse"
	}
	if cfg.Index.Embedder == "openai" {
		o := &cfg.Index.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.BatchSize == 0 {
			o.BatchSize = 32
		}
	}
	if cfg.Index.Backend == "qdrant" {
		q := &cfg.Index.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "triage_criteria"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 10
		}
	}
}

// applyEnv overlays TRIAGE_* variables on the file configuration.
func applyEnv(cfg *AppConfig) error {
	strs := map[string]*string{
		"TRIAGE_ADDR":          &cfg.Server.Addr,
		"TRIAGE_LOG_LEVEL":     &cfg.Log.Level,
		"TRIAGE_LLM_PROVIDER":  &cfg.LLM.Provider,
		"TRIAGE_LLM_ENDPOINT":  &cfg.LLM.Endpoint,
		"TRIAGE_LLM_MODEL":     &cfg.LLM.Model,
		"TRIAGE_STORE_TYPE":    &cfg.Store.Type,
		"TRIAGE_STORE_DSN":     &cfg.Store.DSN,
		"TRIAGE_REDIS_ADDR":    &cfg.Store.RedisAddr,
		"TRIAGE_TEMPLATE_PATH": &cfg.Analysis.TemplatePath,
		"TRIAGE_KB_DIR":        &cfg.KnowledgeBase.Dir,
		"TRIAGE_INDEX_PATH":    &cfg.Index.Path,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv("TRIAGE_ANALYSIS_TIMEOUT_SECS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRIAGE_ANALYSIS_TIMEOUT_SECS: %w", err)
		}
		cfg.Analysis.TimeoutSecs = n
	}
	return nil
}
