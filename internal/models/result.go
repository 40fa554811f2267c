package models

// ScoreKind identifies which retrieval source produced a score.
type ScoreKind string

const (
	ScoreKindVector ScoreKind = "vector"
	ScoreKindText   ScoreKind = "text"
)

// SearchResult is a single retrieval hit. Score is normalized to [0,1] within its
// source; RawScore keeps the store's original value.
type SearchResult struct {
	Chunk     *Chunk    `json:"chunk"`
	Score     float64   `json:"score"`
	RawScore  float64   `json:"raw_score"`
	ScoreKind ScoreKind `json:"score_kind"`
}

// RerankedResult is a SearchResult with a cross-encoder relevance score (higher is better).
type RerankedResult struct {
	*SearchResult
	RerankScore float64 `json:"rerank_score"`
}

// ThreadContext is the assembled context for one thread. At most one exists per
// thread per query.
type ThreadContext struct {
	ThreadID      string   `json:"thread_id"`
	Source        string   `json:"source"`
	Authoritative bool     `json:"authoritative"`
	Chunks        []*Chunk `json:"-"`
	Text          string   `json:"text"`
}

// RetrieveResponse is returned by the retrieval endpoint.
type RetrieveResponse struct {
	Context   string           `json:"context"`
	Threads   []*ThreadContext `json:"threads,omitempty"`
	QueryTime int64            `json:"query_time_ms"`
}
