// Package keyword provides sparse (BM25-style) search over chunk text.
package keyword

import (
	"context"

	"github.com/hyperjump/wraith/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled matches each query term within Fuzziness edits for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance (1 or 2). Default 1.
	Fuzziness int
	// ThreadID restricts hits to one thread when set.
	ThreadID string
}

// KeywordIndex defines keyword search operations over chunks.
type KeywordIndex interface {
	Index(ctx context.Context, chunk *models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	DeleteThread(ctx context.Context, threadID string) (int, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. Score is the raw relevance score.
type KeywordResult struct {
	ID       string
	ThreadID string
	Score    float64
}
