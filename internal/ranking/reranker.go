package ranking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/models"
)

// DefaultTopK is the number of candidates kept after reranking.
const DefaultTopK = 5

// Reranker orders hybrid search candidates by scorer relevance.
type Reranker struct {
	scorer Scorer
	logger *zap.Logger
}

// NewReranker creates a Reranker.
func NewReranker(scorer Scorer, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{scorer: scorer, logger: logger}
}

// Rerank scores every (query, chunk text) pair in one scorer call, stable-sorts
// by score descending and keeps the first topK. Empty input returns an empty
// slice without calling the scorer. Scorer errors and score count mismatches
// are returned as ScoringFailed.
func (r *Reranker) Rerank(ctx context.Context, query string, results []*models.SearchResult, topK int) ([]*models.RerankedResult, error) {
	if len(results) == 0 {
		return []*models.RerankedResult{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	passages := make([]string, len(results))
	for i, res := range results {
		passages[i] = res.Chunk.Text
	}
	scores, err := r.scorer.Score(ctx, query, passages)
	if err != nil {
		return nil, apperr.New(apperr.ScoringFailed, "rerank", err)
	}
	if len(scores) != len(results) {
		return nil, apperr.New(apperr.ScoringFailed, "rerank",
			fmt.Errorf("scorer returned %d scores for %d passages", len(scores), len(results)))
	}

	out := make([]*models.RerankedResult, len(results))
	for i, res := range results {
		out[i] = &models.RerankedResult{SearchResult: res, RerankScore: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RerankScore > out[j].RerankScore })
	if len(out) > topK {
		out = out[:topK]
	}
	r.logger.Debug("reranked", zap.Int("candidates", len(results)), zap.Int("kept", len(out)))
	return out, nil
}
