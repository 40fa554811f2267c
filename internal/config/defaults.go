package config

import "time"

// DefaultTechnicalKeywords is the vocabulary that routes a query to retrieval.
var DefaultTechnicalKeywords = []string{
	"webex", "cucm", "cisco", "configure",
	"error", "deployment", "call manager",
	"troubleshoot", "installation",
}

// DefaultStopWords end a session's flow when sent as the whole message.
var DefaultStopWords = []string{"bye", "goodbye", "stop", "exit", "thanks"}

// DefaultAuthoritativeDomains are trusted documentation sources.
var DefaultAuthoritativeDomains = []string{
	"help.webex.com",
	"cisco.com",
	"developer.webex.com",
}

// DefaultJunkPatterns match scraped boilerplate: navigation, legal text and language switchers.
var DefaultJunkPatterns = []string{
	`(?i)^\s*(sign in|log in|login|home|menu|search)(\s*[|/>»·-]\s*(sign in|log in|login|home|menu|search))*\s*$`,
	`(?i)skip to (main )?content`,
	`(?i)all rights reserved`,
	`(?i)privacy (policy|statement)`,
	`(?i)terms (of use|and conditions|&amp; conditions)`,
	`(?i)(accept|manage|allow all) cookies`,
	`(?i)cookie (policy|preferences|settings)`,
	`(?i)english\s*[|/]\s*(español|deutsch|français|日本語|中文)`,
	`(?i)^\s*(back to top|was this (article|page) helpful\??)\s*$`,
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 180 * time.Second
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/wraith/data/db/chunks.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/wraith/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/wraith/data/indices/vectors.bin"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/wraith/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.ONNXOutput == "" {
		cfg.Embedding.ONNXOutput = "last_hidden_state"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = "http://localhost:11434"
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "all-minilm"
	}
	if cfg.Embedding.LongQueryChars == 0 {
		cfg.Embedding.LongQueryChars = 500
	}

	if cfg.Rerank.Provider == "" {
		cfg.Rerank.Provider = "lexical"
	}

	if cfg.Retrieval.TopKVector == 0 {
		cfg.Retrieval.TopKVector = 50
	}
	if cfg.Retrieval.TopKSparse == 0 {
		cfg.Retrieval.TopKSparse = 20
	}
	if cfg.Retrieval.TopKRerank == 0 {
		cfg.Retrieval.TopKRerank = 5
	}
	if cfg.Retrieval.MaxChunksPerThread == 0 {
		cfg.Retrieval.MaxChunksPerThread = 3
	}
	if cfg.Retrieval.BackfillLimit == 0 {
		cfg.Retrieval.BackfillLimit = 5
	}
	if cfg.Retrieval.AuthoritativeDomains == nil {
		cfg.Retrieval.AuthoritativeDomains = append([]string(nil), DefaultAuthoritativeDomains...)
	}
	if cfg.Retrieval.JunkPatterns == nil {
		cfg.Retrieval.JunkPatterns = append([]string(nil), DefaultJunkPatterns...)
	}

	if cfg.Intent.Keywords == nil {
		cfg.Intent.Keywords = append([]string(nil), DefaultTechnicalKeywords...)
	}

	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = "ollama"
	}
	if cfg.Generator.Model == "" {
		if cfg.Generator.Provider == "openai" {
			cfg.Generator.Model = "gpt-4o-mini"
		} else {
			cfg.Generator.Model = "llama3.1"
		}
	}
	if cfg.Generator.BaseURL == "" && cfg.Generator.Provider == "ollama" {
		cfg.Generator.BaseURL = "http://localhost:11434"
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.2
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.LockTTL == 0 {
		cfg.Session.LockTTL = 5 * time.Minute
	}
	if cfg.Session.DatabasePath == "" {
		cfg.Session.DatabasePath = "/usr/local/var/wraith/data/db/sessions.db"
	}

	if cfg.Conversation.StopWords == nil {
		cfg.Conversation.StopWords = append([]string(nil), DefaultStopWords...)
	}
	if cfg.Conversation.SummarizeAfter == 0 {
		cfg.Conversation.SummarizeAfter = 6
	}
	if cfg.Conversation.MaxMessages == 0 {
		cfg.Conversation.MaxMessages = 20
	}
	if cfg.Conversation.KeepAfterPrune == 0 {
		cfg.Conversation.KeepAfterPrune = 2
	}

	if cfg.Timeouts.Store == 0 {
		cfg.Timeouts.Store = 10 * time.Second
	}
	if cfg.Timeouts.Scorer == 0 {
		cfg.Timeouts.Scorer = 30 * time.Second
	}
	if cfg.Timeouts.Generator == 0 {
		cfg.Timeouts.Generator = 120 * time.Second
	}
	if cfg.Timeouts.Embedder == 0 {
		cfg.Timeouts.Embedder = 30 * time.Second
	}
	if cfg.Timeouts.WebSearch == 0 {
		cfg.Timeouts.WebSearch = 15 * time.Second
	}

	if cfg.WebSearch.BaseURL == "" {
		cfg.WebSearch.BaseURL = "https://api.tavily.com"
	}
	if cfg.WebSearch.MaxResults == 0 {
		cfg.WebSearch.MaxResults = 2
	}

	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".jsonl", ".txt", ".md", ".pdf", ".docx"}
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 200
	}
	if cfg.Ingest.MaxFileMB == 0 {
		cfg.Ingest.MaxFileMB = 64
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 30
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Ingest.Directories) > 0 && cfg.Ingest.Recursive == nil {
		t := true
		cfg.Ingest.Recursive = &t
	}
}
