// Package models defines core data structures for chunks, search results, and conversation state.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Chunk is a bounded span of text from a source thread, stored with its embedding.
// Chunks are immutable once stored.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	ThreadID   string    `json:"thread_id" db:"thread_id"`
	Source     string    `json:"source" db:"source"`
	Text       string    `json:"text" db:"text"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ThreadInput is the input for ingesting one support thread.
// Either Text (chunked by the indexer) or Chunks (stored as given) must be set.
type ThreadInput struct {
	ThreadID string   `json:"thread_id"`
	Source   string   `json:"source,omitempty"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text,omitempty"`
	Chunks   []string `json:"chunks,omitempty"`
	// Scraped marks raw scraped pages that should go through the web cleaner first.
	Scraped bool `json:"scraped,omitempty"`
}

// Validate trims the thread id and requires either text or chunks.
func (in *ThreadInput) Validate() error {
	in.ThreadID = strings.TrimSpace(in.ThreadID)
	if in.ThreadID == "" {
		return fmt.Errorf("thread_id cannot be empty")
	}
	if strings.TrimSpace(in.Text) == "" && len(in.Chunks) == 0 {
		return fmt.Errorf("thread %s has no text or chunks", in.ThreadID)
	}
	return nil
}
