// Package retrieval wires hybrid search, reranking and context assembly into
// one runtime that is constructed at startup and shared by every turn.
package retrieval

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/assembler"
	"github.com/hyperjump/wraith/internal/metrics"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/ranking"
)

// Searcher produces per-thread deduplicated candidates.
type Searcher interface {
	HybridSearch(ctx context.Context, query string) ([]*models.SearchResult, error)
}

// WebSearcher returns supplementary context text for a query.
type WebSearcher interface {
	Context(ctx context.Context, query string) (string, error)
}

// Options bounds the reranked set and the per-thread context.
type Options struct {
	TopKRerank         int
	MaxChunksPerThread int
	// Web, when set, is appended after the assembled context.
	Web        WebSearcher
	WebTimeout time.Duration
}

// Result is the full outcome of one retrieval.
type Result struct {
	Context    string
	Threads    []*models.ThreadContext
	Candidates int
	// Fallback is set when assembly found nothing usable and Context is the raw reranked text.
	Fallback bool
	// Web holds the text appended from web search, if any.
	Web string
}

// Runtime runs search, rerank and assembly in sequence.
type Runtime struct {
	searcher  Searcher
	reranker  *ranking.Reranker
	assembler *assembler.Assembler
	opts      Options
	logger    *zap.Logger
}

// NewRuntime creates a Runtime.
func NewRuntime(searcher Searcher, reranker *ranking.Reranker, asm *assembler.Assembler, opts Options, logger *zap.Logger) *Runtime {
	if opts.TopKRerank <= 0 {
		opts.TopKRerank = ranking.DefaultTopK
	}
	if opts.MaxChunksPerThread <= 0 {
		opts.MaxChunksPerThread = 3
	}
	if opts.WebTimeout <= 0 {
		opts.WebTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{searcher: searcher, reranker: reranker, assembler: asm, opts: opts, logger: logger}
}

// Retrieve returns the assembled context for query. An empty string with a nil
// error means nothing relevant was found.
func (r *Runtime) Retrieve(ctx context.Context, query string) (string, error) {
	res, err := r.RetrieveThreads(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Context, nil
}

// RetrieveThreads is Retrieve with the per-thread breakdown. Errors carry an apperr kind.
func (r *Runtime) RetrieveThreads(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.InvalidInput, "retrieve", errors.New("query is empty"))
	}

	candidates, err := r.searcher.HybridSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	res := &Result{Candidates: len(candidates)}
	defer func() { metrics.ObserveRetrieval(res.Candidates, start) }()
	if len(candidates) == 0 {
		r.logger.Debug("no candidates", zap.String("query", query))
		r.appendWeb(ctx, query, res)
		return res, nil
	}

	reranked, err := r.reranker.Rerank(ctx, query, candidates, r.opts.TopKRerank)
	if err != nil {
		return nil, err
	}

	threads, err := r.assembler.AssembleContext(ctx, reranked, r.opts.MaxChunksPerThread)
	switch {
	case errors.Is(err, assembler.ErrNoUsableContext):
		res.Context = flatten(reranked)
		res.Fallback = true
		r.logger.Info("no usable context after filtering, using raw chunks",
			zap.String("query", query),
			zap.Int("chunks", len(reranked)),
		)
	case err != nil:
		return nil, err
	default:
		res.Threads = threads
		res.Context = assembler.JoinContext(threads)
	}

	r.appendWeb(ctx, query, res)

	r.logger.Debug("retrieved",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("threads", len(res.Threads)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// appendWeb adds web search text after the local context. Failures are logged
// and the local result is kept.
func (r *Runtime) appendWeb(ctx context.Context, query string, res *Result) {
	if r.opts.Web == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, r.opts.WebTimeout)
	defer cancel()
	text, err := r.opts.Web.Context(wctx, query)
	if err != nil {
		r.logger.Warn("web search failed, using local context only",
			zap.String("query", query),
			zap.Error(err),
		)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	res.Web = text
	if res.Context == "" {
		res.Context = text
		return
	}
	res.Context += "\n" + text
}

// flatten joins the raw text of the reranked chunks without filtering.
func flatten(reranked []*models.RerankedResult) string {
	parts := make([]string, 0, len(reranked))
	for _, r := range reranked {
		if t := strings.TrimSpace(r.Chunk.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
