// Package vector provides the dense chunk index used by the local chunk store.
package vector

import "context"

// VectorIndex stores unit-length chunk embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit. ID is the chunk ID.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity for unit vectors, in [-1, 1]
}
