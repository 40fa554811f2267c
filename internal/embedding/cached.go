package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/wraith/internal/metrics"
	"github.com/hyperjump/wraith/pkg/utils"
)

// DefaultLongTextChars is the length at which a query is embedded in windows and mean pooled.
const DefaultLongTextChars = 500

// longTextWindowWords is the window size used when pooling long text.
const longTextWindowWords = 128

// DefaultEmbedTimeout bounds one model computation.
const DefaultEmbedTimeout = 30 * time.Second

// CachedEmbedder wraps an Embedder with an LRU cache and a model lock. The lock
// may be shared with other components that use the same model runtime.
// Concurrent misses for the same text are collapsed into a single model call
// that runs detached from any one caller, bounded by the embed timeout. A
// caller whose context ends stops waiting without failing the others.
type CachedEmbedder struct {
	inner         Embedder
	cache         *EmbeddingCache
	modelMu       *sync.Mutex
	group         singleflight.Group
	longTextChars int
	timeout       time.Duration
}

// CachedOption configures a CachedEmbedder.
type CachedOption func(*CachedEmbedder)

// WithModelLock shares mu with other users of the model runtime.
func WithModelLock(mu *sync.Mutex) CachedOption {
	return func(c *CachedEmbedder) {
		if mu != nil {
			c.modelMu = mu
		}
	}
}

// WithLongTextChars sets the pooling threshold; zero or negative disables pooling.
func WithLongTextChars(n int) CachedOption {
	return func(c *CachedEmbedder) { c.longTextChars = n }
}

// WithEmbedTimeout bounds each model computation. Non-positive values keep DefaultEmbedTimeout.
func WithEmbedTimeout(d time.Duration) CachedOption {
	return func(c *CachedEmbedder) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCachedEmbedder wraps inner with a cache of cacheSize entries.
func NewCachedEmbedder(inner Embedder, cacheSize int, opts ...CachedOption) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:         inner,
		cache:         NewEmbeddingCache(cacheSize),
		modelMu:       &sync.Mutex{},
		longTextChars: DefaultLongTextChars,
		timeout:       DefaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the embedding for text from cache, or computes it under the model lock.
// Text at or above the long-text threshold is split into word windows whose
// embeddings are mean pooled.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cached, ok := c.cache.Get(text)
	metrics.ObserveEmbeddingCache(ok)
	if ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := c.group.DoChan(text, func() (interface{}, error) {
		if cached, ok := c.cache.Get(text); ok {
			return cached, nil
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		emb, err := c.compute(cctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Set(text, emb)
		return emb, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

func (c *CachedEmbedder) compute(ctx context.Context, text string) ([]float32, error) {
	if c.longTextChars > 0 && len(text) >= c.longTextChars {
		windows := WordWindows(text, longTextWindowWords)
		if len(windows) > 1 {
			vectors, err := c.embedLocked(ctx, windows)
			if err != nil {
				return nil, err
			}
			pooled := utils.MeanPool(vectors)
			if pooled == nil {
				return nil, fmt.Errorf("mean pooling failed for %d windows", len(windows))
			}
			return pooled, nil
		}
	}
	vectors, err := c.embedLocked(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *CachedEmbedder) embedLocked(ctx context.Context, texts []string) ([][]float32, error) {
	c.modelMu.Lock()
	defer c.modelMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 1 {
		emb, err := c.inner.Embed(ctx, texts[0])
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		return [][]float32{emb}, nil
	}
	out, err := c.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	return out, nil
}

// EmbedBatch embeds each text through the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// CacheLen returns the number of cached embeddings.
func (c *CachedEmbedder) CacheLen() int { return c.cache.Len() }

// Close closes the wrapped embedder.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }
