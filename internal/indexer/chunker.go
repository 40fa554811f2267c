// Package indexer cleans, chunks, embeds and stores support threads.
package indexer

import (
	"strings"

	"github.com/hyperjump/wraith/internal/chunkid"
	"github.com/hyperjump/wraith/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into chunks of threadID with overlapping windows.
func (c *Chunker) Chunk(threadID, source, text string) []*models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var spans []string
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return FromSpans(threadID, source, spans)
}

// FromSpans turns pre-split spans into chunks, skipping blank ones.
func FromSpans(threadID, source string, spans []string) []*models.Chunk {
	out := make([]*models.Chunk, 0, len(spans))
	for _, s := range spans {
		s = Preprocess(s)
		if s == "" {
			continue
		}
		idx := len(out)
		out = append(out, &models.Chunk{
			ID:         chunkid.Chunk(threadID, idx),
			ThreadID:   threadID,
			Source:     source,
			Text:       s,
			ChunkIndex: idx,
		})
	}
	return out
}
