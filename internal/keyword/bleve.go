package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/wraith/internal/models"
)

const (
	fieldText     = "text"
	fieldThreadID = "thread_id"
	fieldSource   = "source"
)

// chunkDoc is the indexed form of a chunk. Embeddings are not indexed.
type chunkDoc struct {
	Text     string `json:"text"`
	ThreadID string `json:"thread_id"`
	Source   string `json:"source"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newChunkMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase, no stemming) so product names like "CUCM" match exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)

	threadFieldMapping := bleve.NewTextFieldMapping()
	threadFieldMapping.Analyzer = keywordanalyzer.Name
	threadFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldThreadID, threadFieldMapping)

	sourceFieldMapping := bleve.NewTextFieldMapping()
	sourceFieldMapping.Analyzer = keywordanalyzer.Name
	sourceFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldSource, sourceFieldMapping)

	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	im.DefaultField = fieldText
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path gives an
// in-memory index. If the mapping changes, remove the index directory and re-ingest.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" || path == ":memory:" {
		index, err := bleve.NewMemOnly(newChunkMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newChunkMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a chunk by its ID.
func (b *BleveIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.index.Index(chunk.ID, chunkDoc{Text: chunk.Text, ThreadID: chunk.ThreadID, Source: chunk.Source})
}

// IndexBatch indexes chunks in one Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, chunks []*models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, chunkDoc{Text: c.Text, ThreadID: c.ThreadID, Source: c.Source}); err != nil {
			return fmt.Errorf("batch index %s: %w", c.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over chunk text (any term may match) and returns up
// to limit hits, best first. Scores are Bleve's raw relevance scores.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	fuzzy := false
	fuzziness := 1
	threadID := ""
	if opts != nil {
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		threadID = opts.ThreadID
	}

	var q blevequery.Query
	if fuzzy {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(fieldText)
		q = mq
	}
	if threadID != "" {
		tq := bleve.NewTermQuery(threadID)
		tq.SetField(fieldThreadID)
		q = bleve.NewConjunctionQuery(q, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldThreadID}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		r := &KeywordResult{ID: hit.ID, Score: hit.Score}
		if tid, ok := hit.Fields[fieldThreadID].(string); ok {
			r.ThreadID = tid
		}
		out[i] = r
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery ORs a FuzzyQuery per term over the text field.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(fieldText)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes one chunk from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DeleteThread removes every chunk of threadID and returns how many were removed.
func (b *BleveIndex) DeleteThread(ctx context.Context, threadID string) (int, error) {
	tq := bleve.NewTermQuery(threadID)
	tq.SetField(fieldThreadID)
	req := bleve.NewSearchRequest(tq)
	req.Size = 10000
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("find thread chunks: %w", err)
	}
	if len(results.Hits) == 0 {
		return 0, nil
	}
	batch := b.index.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("delete thread chunks: %w", err)
	}
	return len(results.Hits), nil
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
