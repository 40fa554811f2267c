// Package websearch fetches supplementary support content from the web,
// restricted to trusted documentation domains.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/wraith/internal/indexer"
	"github.com/hyperjump/wraith/pkg/utils"
)

// DefaultBaseURL is the Tavily API endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// Options configures a TavilyClient.
type Options struct {
	BaseURL    string
	APIKey     string
	Domains    []string
	MaxResults int
	Timeout    time.Duration
}

// TavilyClient calls the Tavily /search endpoint.
type TavilyClient struct {
	baseURL    string
	apiKey     string
	domains    []string
	maxResults int
	client     *http.Client
}

type tavilyRequest struct {
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
}

// Result is one search hit.
type Result struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// NewTavilyClient returns a client. An API key is required.
func NewTavilyClient(opts Options) (*TavilyClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("tavily api key is not set")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &TavilyClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		domains:    append([]string(nil), opts.Domains...),
		maxResults: opts.MaxResults,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Search returns the raw results for query.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		MaxResults:        c.maxResults,
		IncludeRawContent: true,
		IncludeDomains:    c.domains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily search error: status %d: %s", resp.StatusCode, utils.Truncate(string(data), 200))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return parsed.Results, nil
}

// Context searches for query and returns the cleaned page text of each result,
// joined by newlines. Results without text are skipped.
func (c *TavilyClient) Context(ctx context.Context, query string) (string, error) {
	results, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		raw := r.RawContent
		if strings.TrimSpace(raw) == "" {
			raw = r.Content
		}
		if text := indexer.CleanScraped(raw); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
