// Package config provides configuration loading and structs for the wraith server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Storage      StorageConfig      `yaml:"storage"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Rerank       RerankConfig       `yaml:"rerank"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Intent       IntentConfig       `yaml:"intent"`
	Generator    GeneratorConfig    `yaml:"generator"`
	Session      SessionConfig      `yaml:"session"`
	Conversation ConversationConfig `yaml:"conversation"`
	WebSearch    WebSearchConfig    `yaml:"web_search"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
	Ingest       IngestConfig       `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeout bounds each HTTP request, including a full turn.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig holds the rotating log file settings. An empty File logs to the console only.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StorageConfig selects the chunk store backend and its paths.
type StorageConfig struct {
	Backend         string `yaml:"backend"` // local or postgres
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	PostgresDSN     string `yaml:"postgres_dsn"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // onnx, ollama or mock
	ModelPath      string `yaml:"model_path"`
	Dimensions     int    `yaml:"dimensions"`
	MaxTokens      int    `yaml:"max_tokens"`
	ONNXOutput     string `yaml:"onnx_output"` // last_hidden_state (mean pooled) or sentence_embedding
	CacheSize      int    `yaml:"cache_size"`
	OllamaURL      string `yaml:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model"`
	LongQueryChars int    `yaml:"long_query_chars"`
}

// RerankConfig holds cross-encoder scorer settings.
type RerankConfig struct {
	Provider string `yaml:"provider"` // http or lexical
	Endpoint string `yaml:"endpoint"`
}

// RetrievalConfig holds hybrid search and context assembly settings.
type RetrievalConfig struct {
	TopKVector           int      `yaml:"top_k_vector"`
	TopKSparse           int      `yaml:"top_k_sparse"`
	TopKRerank           int      `yaml:"top_k_rerank"`
	MaxChunksPerThread   int      `yaml:"max_chunks_per_thread"`
	BackfillLimit        int      `yaml:"backfill_limit"`
	FuzzySparse          bool     `yaml:"fuzzy_sparse"`
	AuthoritativeDomains []string `yaml:"authoritative_domains"`
	JunkPatterns         []string `yaml:"junk_patterns"`
}

// IntentConfig holds the technical keyword vocabulary.
type IntentConfig struct {
	Keywords []string `yaml:"keywords"`
}

// GeneratorConfig holds LLM settings.
type GeneratorConfig struct {
	Provider    string  `yaml:"provider"` // ollama or openai
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
}

// SessionConfig selects the conversation state backend.
type SessionConfig struct {
	Backend      string        `yaml:"backend"` // memory, redis or sqlite
	TTL          time.Duration `yaml:"ttl"`
	RedisURL     string        `yaml:"redis_url"`
	DatabasePath string        `yaml:"database_path"`
	// LockTTL bounds how long a crashed holder keeps a redis session lease.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// WebSearchConfig holds the optional Tavily search appended to local context.
// Results are restricted to the authoritative domains.
type WebSearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// ConversationConfig holds the turn policy thresholds.
type ConversationConfig struct {
	StopWords      []string `yaml:"stop_words"`
	SummarizeAfter int      `yaml:"summarize_after"`
	MaxMessages    int      `yaml:"max_messages"`
	KeepAfterPrune int      `yaml:"keep_after_prune"`
}

// TimeoutConfig bounds every external call.
type TimeoutConfig struct {
	Store     time.Duration `yaml:"store"`
	Scorer    time.Duration `yaml:"scorer"`
	Generator time.Duration `yaml:"generator"`
	Embedder  time.Duration `yaml:"embedder"`
	WebSearch time.Duration `yaml:"web_search"`
}

// IngestConfig holds thread ingestion and directory watch settings.
type IngestConfig struct {
	Directories  []string `yaml:"directories"`
	Extensions   []string `yaml:"extensions"`
	Recursive    *bool    `yaml:"recursive"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	MaxFileMB    int      `yaml:"max_file_mb"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (i *IngestConfig) RecursiveOrDefault() bool {
	if i.Recursive != nil {
		return *i.Recursive
	}
	return true
}

// Environment variables that override secrets and endpoints.
const (
	EnvOpenAIKey   = "WRAITH_OPENAI_API_KEY"
	EnvPostgresDSN = "WRAITH_POSTGRES_DSN"
	EnvRedisURL    = "WRAITH_REDIS_URL"
	EnvOllamaURL   = "WRAITH_OLLAMA_URL"
	EnvTavilyKey   = "WRAITH_TAVILY_API_KEY"
)

// Load reads and parses the config file at path, applies environment overrides
// (a .env file in the working directory is honoured), expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	_ = godotenv.Load()
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Log.File = expandPath(cfg.Log.File, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Session.DatabasePath = expandPath(cfg.Session.DatabasePath, configDir)
	for i := range cfg.Ingest.Directories {
		cfg.Ingest.Directories[i] = expandPath(cfg.Ingest.Directories[i], configDir)
	}

	return &cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment when set.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.Session.RedisURL = v
	}
	if v := os.Getenv(EnvTavilyKey); v != "" {
		cfg.WebSearch.APIKey = v
	}
	if v := os.Getenv(EnvOllamaURL); v != "" {
		cfg.Embedding.OllamaURL = v
		if cfg.Generator.Provider == "" || cfg.Generator.Provider == "ollama" {
			cfg.Generator.BaseURL = v
		}
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
