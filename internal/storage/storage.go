// Package storage persists chunks and answers the dense, sparse and per-thread
// queries the hybrid retriever needs.
package storage

import (
	"context"

	"github.com/hyperjump/wraith/internal/models"
)

// ChunkStore is the retrieval backend. VectorQuery and TextQuery return hits
// best first with RawScore set to the backend's own score and Score equal to it;
// normalisation happens in the retriever.
type ChunkStore interface {
	VectorQuery(ctx context.Context, embedding []float32, k int) ([]*models.SearchResult, error)
	TextQuery(ctx context.Context, query string, k int) ([]*models.SearchResult, error)
	// FetchByThread returns up to limit chunks of threadID ordered by chunk index.
	FetchByThread(ctx context.Context, threadID string, limit int) ([]*models.Chunk, error)

	// AddChunks inserts or replaces chunks. Chunks without an embedding are only keyword indexed.
	AddChunks(ctx context.Context, chunks []*models.Chunk) error
	// DeleteThread removes every chunk of threadID and returns how many were removed.
	DeleteThread(ctx context.Context, threadID string) (int, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats summarises the store contents.
type Stats struct {
	Backend         string `json:"backend"`
	Chunks          int64  `json:"chunks"`
	Threads         int64  `json:"threads"`
	VectorIndexSize int    `json:"vector_index_size"`
	DiskUsageBytes  int64  `json:"disk_usage_bytes"`
}

func vectorResult(c *models.Chunk, score float64) *models.SearchResult {
	return &models.SearchResult{Chunk: c, Score: score, RawScore: score, ScoreKind: models.ScoreKindVector}
}

func textResult(c *models.Chunk, score float64) *models.SearchResult {
	return &models.SearchResult{Chunk: c, Score: score, RawScore: score, ScoreKind: models.ScoreKindText}
}
