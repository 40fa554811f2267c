package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
timeouts:
  store: 3s
  embedder: 5s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Timeouts.Store != 3*time.Second {
		t.Errorf("store timeout = %v, want 3s", cfg.Timeouts.Store)
	}
	if cfg.Timeouts.Embedder != 5*time.Second {
		t.Errorf("embedder timeout = %v, want 5s", cfg.Timeouts.Embedder)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/chunks.db"
session:
  database_path: ":memory:"
ingest:
  directories: ["./threads"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "chunks.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Session.DatabasePath != ":memory:" {
		t.Errorf(":memory: should not be expanded, got %s", cfg.Session.DatabasePath)
	}
	if len(cfg.Ingest.Directories) != 1 || cfg.Ingest.Directories[0] != filepath.Join(dir, "threads") {
		t.Errorf("ingest directories = %v", cfg.Ingest.Directories)
	}
	if !cfg.Ingest.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvRedisURL, "redis://cache:6379/1")
	t.Setenv(EnvTavilyKey, "tvly-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
generator:
  provider: openai
  api_key: "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generator.APIKey != "sk-test" {
		t.Errorf("api key = %q, want env override", cfg.Generator.APIKey)
	}
	if cfg.Session.RedisURL != "redis://cache:6379/1" {
		t.Errorf("redis url = %q", cfg.Session.RedisURL)
	}
	if cfg.WebSearch.APIKey != "tvly-env" {
		t.Errorf("tavily key = %q, want env override", cfg.WebSearch.APIKey)
	}
	if cfg.Generator.Model != "gpt-4o-mini" {
		t.Errorf("openai default model = %q", cfg.Generator.Model)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Retrieval.TopKVector != 50 || cfg.Retrieval.TopKSparse != 20 || cfg.Retrieval.TopKRerank != 5 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.BackfillLimit != 5 {
		t.Errorf("backfill limit = %d, want 5", cfg.Retrieval.BackfillLimit)
	}
	if cfg.Conversation.SummarizeAfter != 6 || cfg.Conversation.MaxMessages != 20 || cfg.Conversation.KeepAfterPrune != 2 {
		t.Errorf("conversation defaults: %+v", cfg.Conversation)
	}
	if len(cfg.Conversation.StopWords) != 5 || cfg.Conversation.StopWords[0] != "bye" {
		t.Errorf("stop words: %v", cfg.Conversation.StopWords)
	}
	if len(cfg.Intent.Keywords) != 9 {
		t.Errorf("intent keywords: %v", cfg.Intent.Keywords)
	}
	if cfg.Embedding.LongQueryChars != 500 {
		t.Errorf("long query chars = %d", cfg.Embedding.LongQueryChars)
	}
	if cfg.Timeouts.Generator == 0 || cfg.Timeouts.Scorer == 0 || cfg.Timeouts.Store == 0 ||
		cfg.Timeouts.Embedder == 0 || cfg.Timeouts.WebSearch == 0 {
		t.Errorf("timeouts must all be set: %+v", cfg.Timeouts)
	}
	if cfg.Timeouts.Embedder != 30*time.Second {
		t.Errorf("embedder timeout = %v, want 30s", cfg.Timeouts.Embedder)
	}
	if cfg.WebSearch.Enabled || cfg.WebSearch.MaxResults != 2 || cfg.WebSearch.BaseURL != "https://api.tavily.com" {
		t.Errorf("web search defaults: %+v", cfg.WebSearch)
	}
	if cfg.Session.LockTTL != 5*time.Minute {
		t.Errorf("session lock ttl = %v, want 5m", cfg.Session.LockTTL)
	}
	if cfg.Session.Backend != "memory" || cfg.Storage.Backend != "local" {
		t.Errorf("backends: session=%s storage=%s", cfg.Session.Backend, cfg.Storage.Backend)
	}
}

func TestApplyDefaults_keepsExplicitEmptyLists(t *testing.T) {
	cfg := &Config{Retrieval: RetrievalConfig{AuthoritativeDomains: []string{}}}
	ApplyDefaults(cfg)
	if len(cfg.Retrieval.AuthoritativeDomains) != 0 {
		t.Errorf("explicit empty allowlist should be kept, got %v", cfg.Retrieval.AuthoritativeDomains)
	}
}

func TestIngestConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		i := &IngestConfig{}
		if !i.RecursiveOrDefault() {
			t.Error("RecursiveOrDefault() = false, want true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		i := &IngestConfig{Recursive: &f}
		if i.RecursiveOrDefault() {
			t.Error("RecursiveOrDefault() = true, want false")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
