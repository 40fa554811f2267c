// Package embedding turns text into vectors. Model handles are not safe for
// concurrent inference; CachedEmbedder serializes access and caches results.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
