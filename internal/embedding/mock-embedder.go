package embedding

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/hyperjump/wraith/pkg/utils"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and offline
// runs. Each lowercased word is hashed to a signed dimension, so texts sharing
// vocabulary land close together and identical texts get identical vectors.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
}

// NewMockEmbedder returns a MockEmbedder with the given dimensions (384 when not positive).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length hashed word vector of text. Text without words
// maps to the first basis vector.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls.Add(1)
	vec := make([]float32, e.dimensions)
	words := SplitWords(strings.ToLower(text))
	if len(words) == 0 {
		vec[0] = 1
		return vec, nil
	}
	dims := uint(e.dimensions)
	for _, w := range words {
		h := uint(HashString(w))
		sign := float32(1)
		if (h/dims)%2 == 1 {
			sign = -1
		}
		vec[h%dims] += sign
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds texts in order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Calls returns how many times Embed ran.
func (e *MockEmbedder) Calls() int64 { return e.calls.Load() }

func (e *MockEmbedder) Dimensions() int { return e.dimensions }

func (e *MockEmbedder) Close() error { return nil }
