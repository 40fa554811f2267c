package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/wraith/pkg/utils"
)

// HTTPScorer calls a cross-encoder served behind a text-embeddings-inference
// style /rerank endpoint.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewHTTPScorer returns a scorer for baseURL. "/rerank" is appended unless already present.
func NewHTTPScorer(baseURL string) *HTTPScorer {
	endpoint := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/rerank") {
		endpoint += "/rerank"
	}
	return &HTTPScorer{endpoint: endpoint, client: &http.Client{Timeout: 60 * time.Second}}
}

// Score sends the whole batch in one request and maps scores back to input order.
func (s *HTTPScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}
	body, err := json.Marshal(rerankRequest{Query: query, Texts: passages, RawScores: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error: status %d: %s", resp.StatusCode, utils.Truncate(string(data), 200))
	}

	var items []rerankItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(items) != len(passages) {
		return nil, fmt.Errorf("rerank returned %d scores for %d passages", len(items), len(passages))
	}
	scores := make([]float64, len(passages))
	seen := make([]bool, len(passages))
	for _, it := range items {
		if it.Index < 0 || it.Index >= len(passages) || seen[it.Index] {
			return nil, fmt.Errorf("rerank returned invalid index %d", it.Index)
		}
		seen[it.Index] = true
		scores[it.Index] = it.Score
	}
	return scores, nil
}
