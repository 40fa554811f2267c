// Package ranking reranks retrieval candidates with a query-passage relevance scorer.
package ranking

import (
	"context"
	"sync"
	"time"
)

// Scorer returns one relevance score per passage for query, higher is better.
// Implementations receive the whole batch in one call.
type Scorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// GuardedScorer serialises calls to a scorer that shares a model runtime with
// the embedder. The lock is held only for the duration of the call, bounded by timeout.
type GuardedScorer struct {
	inner   Scorer
	mu      *sync.Mutex
	timeout time.Duration
}

// NewGuardedScorer wraps inner. A nil mu gets a private lock; timeout <= 0 disables the deadline.
func NewGuardedScorer(inner Scorer, mu *sync.Mutex, timeout time.Duration) *GuardedScorer {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &GuardedScorer{inner: inner, mu: mu, timeout: timeout}
}

// Score calls the wrapped scorer under the model lock.
func (g *GuardedScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.inner.Score(ctx, query, passages)
}
