// Package search provides the hybrid (dense + sparse) retriever.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/embedding"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

// Options bounds the candidate sets and the time spent in the store.
type Options struct {
	TopKVector   int
	TopKSparse   int
	StoreTimeout time.Duration
}

// Engine runs hybrid search over a ChunkStore.
type Engine struct {
	store    storage.ChunkStore
	embedder embedding.Embedder
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates a search engine. Zero options fall back to 50 dense and 20 sparse candidates.
func NewEngine(store storage.ChunkStore, embedder embedding.Embedder, opts Options, logger *zap.Logger) *Engine {
	if opts.TopKVector <= 0 {
		opts.TopKVector = 50
	}
	if opts.TopKSparse <= 0 {
		opts.TopKSparse = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, embedder: embedder, opts: opts, logger: logger}
}

// HybridSearch embeds query and runs the dense and sparse queries concurrently.
// Each source is min-max normalised on its own, then the best hit per thread is
// kept. Store errors are classified as StoreUnavailable or StoreOperationFailed;
// an embedding failure is reported as ScoringFailed.
func (e *Engine) HybridSearch(ctx context.Context, query string) ([]*models.SearchResult, error) {
	var dense, sparse []*models.SearchResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		emb, err := e.embedder.Embed(gctx, query)
		if err != nil {
			return apperr.New(apperr.ScoringFailed, "embed_query", err)
		}
		qctx, cancel := e.storeContext(gctx)
		defer cancel()
		res, err := e.store.VectorQuery(qctx, emb, e.opts.TopKVector)
		if err != nil {
			return storage.Classify("vector_query", err)
		}
		dense = res
		return nil
	})

	g.Go(func() error {
		qctx, cancel := e.storeContext(gctx)
		defer cancel()
		res, err := e.store.TextQuery(qctx, query, e.opts.TopKSparse)
		if err != nil {
			return storage.Classify("text_query", err)
		}
		sparse = res
		return nil
	})

	if err := g.Wait(); err != nil {
		e.logger.Warn("hybrid search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	merged := MergeByThread(NormalizeMinMax(dense), NormalizeMinMax(sparse))
	e.logger.Debug("hybrid search",
		zap.Int("dense", len(dense)),
		zap.Int("sparse", len(sparse)),
		zap.Int("threads", len(merged)),
	)
	if merged == nil {
		merged = []*models.SearchResult{}
	}
	return merged, nil
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, e.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

// String describes the engine configuration for logs.
func (e *Engine) String() string {
	return fmt.Sprintf("hybrid(k_v=%d, k_s=%d)", e.opts.TopKVector, e.opts.TopKSparse)
}
