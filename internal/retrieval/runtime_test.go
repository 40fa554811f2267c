package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/assembler"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/embedding"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/ranking"
	"github.com/hyperjump/wraith/internal/storage"
)

type fakeSearcher struct {
	results []*models.SearchResult
	err     error
}

func (f *fakeSearcher) HybridSearch(context.Context, string) ([]*models.SearchResult, error) {
	return f.results, f.err
}

type noFetch struct{}

func (noFetch) FetchByThread(context.Context, string, int) ([]*models.Chunk, error) { return nil, nil }

type orderScorer struct{ err error }

// Score prefers earlier passages.
func (o orderScorer) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	if o.err != nil {
		return nil, o.err
	}
	out := make([]float64, len(passages))
	for i := range passages {
		out[i] = float64(len(passages) - i)
	}
	return out, nil
}

func newRuntime(t *testing.T, s Searcher, scorer ranking.Scorer) *Runtime {
	t.Helper()
	asm, err := assembler.New(noFetch{}, assembler.Options{
		AuthoritativeDomains: config.DefaultAuthoritativeDomains,
		JunkPatterns:         config.DefaultJunkPatterns,
	}, nil)
	require.NoError(t, err)
	return NewRuntime(s, ranking.NewReranker(scorer, nil), asm, Options{}, nil)
}

func result(id, thread, source, text string) *models.SearchResult {
	return &models.SearchResult{Chunk: &models.Chunk{ID: id, ThreadID: thread, Source: source, Text: text}, Score: 1}
}

func TestRuntime_Retrieve(t *testing.T) {
	s := &fakeSearcher{results: []*models.SearchResult{
		result("a", "A", "forum", "A community answer that explains clearing the Webex cache."),
		result("b", "B", "https://help.webex.com/b", "Official article: reset your Webex password from Settings."),
	}}
	ctx, err := newRuntime(t, s, orderScorer{}).Retrieve(context.Background(), "webex password")
	require.NoError(t, err)
	parts := strings.Split(ctx, "\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "Official article")
}

func TestRuntime_Retrieve_noCandidates(t *testing.T) {
	ctx, err := newRuntime(t, &fakeSearcher{}, orderScorer{}).Retrieve(context.Background(), "webex")
	require.NoError(t, err)
	assert.Empty(t, ctx)
}

func TestRuntime_Retrieve_fallbackToRawChunks(t *testing.T) {
	s := &fakeSearcher{results: []*models.SearchResult{
		result("a", "A", "", "Sign in"),
		result("b", "B", "", "Home"),
	}}
	res, err := newRuntime(t, s, orderScorer{}).RetrieveThreads(context.Background(), "webex")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "Sign in\nHome", res.Context)
}

func TestRuntime_Retrieve_errors(t *testing.T) {
	_, err := newRuntime(t, &fakeSearcher{}, orderScorer{}).Retrieve(context.Background(), "  ")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	storeErr := apperr.New(apperr.StoreUnavailable, "vector_query", errors.New("down"))
	_, err = newRuntime(t, &fakeSearcher{err: storeErr}, orderScorer{}).Retrieve(context.Background(), "webex")
	assert.Equal(t, apperr.StoreUnavailable, apperr.KindOf(err))

	s := &fakeSearcher{results: []*models.SearchResult{result("a", "A", "", "long enough text for the junk filter to accept")}}
	_, err = newRuntime(t, s, orderScorer{err: errors.New("oom")}).Retrieve(context.Background(), "webex")
	assert.Equal(t, apperr.ScoringFailed, apperr.KindOf(err))
}

type fakeWeb struct {
	text     string
	err      error
	deadline bool
}

func (f *fakeWeb) Context(ctx context.Context, _ string) (string, error) {
	_, f.deadline = ctx.Deadline()
	return f.text, f.err
}

func newWebRuntime(t *testing.T, s Searcher, web WebSearcher) *Runtime {
	t.Helper()
	asm, err := assembler.New(noFetch{}, assembler.Options{
		AuthoritativeDomains: config.DefaultAuthoritativeDomains,
		JunkPatterns:         config.DefaultJunkPatterns,
	}, nil)
	require.NoError(t, err)
	return NewRuntime(s, ranking.NewReranker(orderScorer{}, nil), asm, Options{Web: web}, nil)
}

func TestRuntime_Retrieve_appendsWebContext(t *testing.T) {
	s := &fakeSearcher{results: []*models.SearchResult{
		result("b", "B", "https://help.webex.com/b", "Official article: reset your Webex password from Settings."),
	}}
	web := &fakeWeb{text: "  Web answer: use the Forgot password link.  "}
	res, err := newWebRuntime(t, s, web).RetrieveThreads(context.Background(), "webex password")
	require.NoError(t, err)
	assert.True(t, web.deadline, "web search must run under a timeout")
	assert.Equal(t, "Web answer: use the Forgot password link.", res.Web)
	assert.True(t, strings.HasPrefix(res.Context, "Official article"), res.Context)
	assert.True(t, strings.HasSuffix(res.Context, "\nWeb answer: use the Forgot password link."), res.Context)
}

func TestRuntime_Retrieve_webOnlyWhenNoCandidates(t *testing.T) {
	text, err := newWebRuntime(t, &fakeSearcher{}, &fakeWeb{text: "Jabber SSO steps"}).Retrieve(context.Background(), "jabber sso")
	require.NoError(t, err)
	assert.Equal(t, "Jabber SSO steps", text)
}

func TestRuntime_Retrieve_webFailureKeepsLocalContext(t *testing.T) {
	s := &fakeSearcher{results: []*models.SearchResult{
		result("b", "B", "https://help.webex.com/b", "Official article: reset your Webex password from Settings."),
	}}
	res, err := newWebRuntime(t, s, &fakeWeb{err: errors.New("tavily down")}).RetrieveThreads(context.Background(), "webex password")
	require.NoError(t, err)
	assert.Empty(t, res.Web)
	assert.Equal(t, assembler.JoinContext(res.Threads), res.Context)
}

func TestAssemble_endToEndWithLocalStore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16

	store, err := storage.NewLocalChunkStore(ctx, storage.LocalOptions{DatabasePath: ":memory:", Dimensions: 16}, nil)
	require.NoError(t, err)
	base, err := NewEmbedder(cfg)
	require.NoError(t, err)
	scorer, err := NewScorer(cfg)
	require.NoError(t, err)
	st, err := Assemble(store, base, scorer, cfg, nil)
	require.NoError(t, err)
	defer st.Close()

	mock := embedding.NewMockEmbedder(16)
	docs := []*models.Chunk{
		{ID: "w-0", ThreadID: "https://help.webex.com/article/reset", Source: "https://help.webex.com/article/reset", Text: "To reset your Webex password, open the sign-in page and select Forgot password."},
		{ID: "c-0", ThreadID: "forum-7", Source: "forum", ChunkIndex: 0, Text: "CUCM installation fails when the DNS entries are missing on the publisher."},
		{ID: "c-1", ThreadID: "forum-7", Source: "forum", ChunkIndex: 1, Text: "All rights reserved"},
	}
	for _, d := range docs {
		d.Embedding, _ = mock.Embed(ctx, d.Text)
	}
	require.NoError(t, store.AddChunks(ctx, docs))

	text, err := st.Runtime.Retrieve(ctx, "How do I reset my Webex password?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "To reset your Webex password"), text)
	assert.NotContains(t, text, "All rights reserved")
	assert.Equal(t, 1, st.Embedder.CacheLen())
}

func TestNewEmbedderAndScorer_unknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Embedding.Provider = "word2vec"
	_, err := NewEmbedder(cfg)
	assert.Error(t, err)

	cfg.Rerank.Provider = "http"
	_, err = NewScorer(cfg)
	assert.ErrorContains(t, err, "endpoint")
	cfg.Rerank.Provider = "magic"
	_, err = NewScorer(cfg)
	assert.Error(t, err)
}

func TestAssemble_webSearchRestrictedToAuthoritativeDomains(t *testing.T) {
	ctx := context.Background()
	var domains []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IncludeDomains []string `json:"include_domains"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		domains = req.IncludeDomains
		_, _ = w.Write([]byte(`{"results":[{"url":"https://help.webex.com/x","raw_content":"Clear the Webex cache and sign in again."}]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16
	cfg.WebSearch.Enabled = true
	cfg.WebSearch.BaseURL = srv.URL

	store, err := storage.NewLocalChunkStore(ctx, storage.LocalOptions{DatabasePath: ":memory:", Dimensions: 16}, nil)
	require.NoError(t, err)
	defer store.Close()
	base, err := NewEmbedder(cfg)
	require.NoError(t, err)
	scorer, err := NewScorer(cfg)
	require.NoError(t, err)

	_, err = Assemble(store, base, scorer, cfg, nil)
	require.ErrorContains(t, err, "api key", "enabled web search without a key must fail at startup")

	cfg.WebSearch.APIKey = "tvly-test"
	st, err := Assemble(store, base, scorer, cfg, nil)
	require.NoError(t, err)

	text, err := st.Runtime.Retrieve(ctx, "webex sign in loop")
	require.NoError(t, err)
	assert.Equal(t, "Clear the Webex cache and sign in again.", text)
	assert.Equal(t, config.DefaultAuthoritativeDomains, domains)
}
