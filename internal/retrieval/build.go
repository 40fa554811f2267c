package retrieval

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/assembler"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/embedding"
	"github.com/hyperjump/wraith/internal/ranking"
	"github.com/hyperjump/wraith/internal/search"
	"github.com/hyperjump/wraith/internal/storage"
	"github.com/hyperjump/wraith/internal/websearch"
)

// Stack owns every retrieval resource for the process lifetime.
type Stack struct {
	Store     storage.ChunkStore
	Embedder  *embedding.CachedEmbedder
	Scorer    ranking.Scorer
	Engine    *search.Engine
	Assembler *assembler.Assembler
	Runtime   *Runtime
	// ModelLock serialises the embedder and the scorer.
	ModelLock *sync.Mutex
}

// NewEmbedder returns the base embedder selected by cfg.Embedding.Provider.
func NewEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "onnx", "":
		return embedding.NewONNXEmbedder(embedding.ONNXOptions{
			ModelPath:  e.ModelPath,
			Dimensions: e.Dimensions,
			MaxTokens:  e.MaxTokens,
			OutputName: e.ONNXOutput,
		})
	case "ollama":
		return embedding.NewOllamaEmbedder(e.OllamaURL, e.OllamaModel, e.Dimensions), nil
	case "mock":
		return embedding.NewMockEmbedder(e.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, ollama, mock)", e.Provider)
	}
}

// NewScorer returns the base scorer selected by cfg.Rerank.Provider.
func NewScorer(cfg *config.Config) (ranking.Scorer, error) {
	switch cfg.Rerank.Provider {
	case "lexical", "":
		return ranking.NewLexicalScorer(), nil
	case "http":
		if cfg.Rerank.Endpoint == "" {
			return nil, fmt.Errorf("rerank.endpoint is required for the http scorer")
		}
		return ranking.NewHTTPScorer(cfg.Rerank.Endpoint), nil
	default:
		return nil, fmt.Errorf("unknown rerank provider: %s (supported: http, lexical)", cfg.Rerank.Provider)
	}
}

// Open builds the retrieval stack from cfg. The embedder and scorer share one model lock.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}
	scorer, err := NewScorer(cfg)
	if err != nil {
		_ = base.Close()
		_ = store.Close()
		return nil, err
	}
	st, err := Assemble(store, base, scorer, cfg, logger)
	if err != nil {
		_ = base.Close()
		_ = store.Close()
		return nil, err
	}
	return st, nil
}

// Assemble wires already-constructed backends into a Stack.
func Assemble(store storage.ChunkStore, base embedding.Embedder, scorer ranking.Scorer, cfg *config.Config, logger *zap.Logger) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu := &sync.Mutex{}
	emb := embedding.NewCachedEmbedder(base, cfg.Embedding.CacheSize,
		embedding.WithModelLock(mu),
		embedding.WithLongTextChars(cfg.Embedding.LongQueryChars),
		embedding.WithEmbedTimeout(cfg.Timeouts.Embedder),
	)
	guarded := ranking.NewGuardedScorer(scorer, mu, cfg.Timeouts.Scorer)

	engine := search.NewEngine(store, emb, search.Options{
		TopKVector:   cfg.Retrieval.TopKVector,
		TopKSparse:   cfg.Retrieval.TopKSparse,
		StoreTimeout: cfg.Timeouts.Store,
	}, logger.Named("search"))

	asm, err := assembler.New(store, assembler.Options{
		AuthoritativeDomains: cfg.Retrieval.AuthoritativeDomains,
		JunkPatterns:         cfg.Retrieval.JunkPatterns,
		BackfillLimit:        cfg.Retrieval.BackfillLimit,
		StoreTimeout:         cfg.Timeouts.Store,
	}, logger.Named("assembler"))
	if err != nil {
		return nil, err
	}

	opts := Options{
		TopKRerank:         cfg.Retrieval.TopKRerank,
		MaxChunksPerThread: cfg.Retrieval.MaxChunksPerThread,
		WebTimeout:         cfg.Timeouts.WebSearch,
	}
	if cfg.WebSearch.Enabled {
		web, err := websearch.NewTavilyClient(websearch.Options{
			BaseURL:    cfg.WebSearch.BaseURL,
			APIKey:     cfg.WebSearch.APIKey,
			Domains:    asm.Authority().Domains(),
			MaxResults: cfg.WebSearch.MaxResults,
			Timeout:    cfg.Timeouts.WebSearch,
		})
		if err != nil {
			return nil, fmt.Errorf("web search: %w", err)
		}
		opts.Web = web
	}
	rt := NewRuntime(engine, ranking.NewReranker(guarded, logger.Named("rerank")), asm, opts, logger.Named("retrieval"))

	return &Stack{
		Store:     store,
		Embedder:  emb,
		Scorer:    guarded,
		Engine:    engine,
		Assembler: asm,
		Runtime:   rt,
		ModelLock: mu,
	}, nil
}

// Close releases the embedder and the store.
func (s *Stack) Close() error {
	var firstErr error
	if s.Embedder != nil {
		if err := s.Embedder.Close(); err != nil {
			firstErr = err
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
