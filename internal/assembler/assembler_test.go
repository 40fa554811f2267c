package assembler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/models"
)

type fakeFetcher struct {
	threads map[string][]*models.Chunk
	err     error
	calls   []string
	limits  []int
}

func (f *fakeFetcher) FetchByThread(_ context.Context, threadID string, limit int) ([]*models.Chunk, error) {
	f.calls = append(f.calls, threadID)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	chunks := f.threads[threadID]
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

func chunk(id, thread, source, text string) *models.Chunk {
	return &models.Chunk{ID: id, ThreadID: thread, Source: source, Text: text}
}

func reranked(chunks ...*models.Chunk) []*models.RerankedResult {
	out := make([]*models.RerankedResult, len(chunks))
	for i, c := range chunks {
		out[i] = &models.RerankedResult{
			SearchResult: &models.SearchResult{Chunk: c, Score: 1},
			RerankScore:  float64(len(chunks) - i),
		}
	}
	return out
}

func newTestAssembler(t *testing.T, f ThreadFetcher) *Assembler {
	t.Helper()
	a, err := New(f, Options{
		AuthoritativeDomains: config.DefaultAuthoritativeDomains,
		JunkPatterns:         config.DefaultJunkPatterns,
	}, nil)
	require.NoError(t, err)
	return a
}

func TestAssembleContext_webexPasswordScenario(t *testing.T) {
	t1 := chunk("t1-0", "T1", "https://help.webex.com/en-us/article/reset-password",
		"To reset your Webex password, open the sign-in page, enter your email and select Forgot password.")
	t2a := chunk("t2-0", "T2", "https://community.example.org/t/2",
		"I had the same issue. Clearing the browser cache fixed the password reset loop for me.")
	t2junk := chunk("t2-1", "T2", "https://community.example.org/t/2", "Sign in | Home")
	t2b := chunk("t2-2", "T2", "https://community.example.org/t/2",
		"Admins can also force a password reset from Control Hub under Users, then Actions.")

	f := &fakeFetcher{threads: map[string][]*models.Chunk{
		"T1": {t1},
		"T2": {t2a, t2junk, t2b},
	}}
	a := newTestAssembler(t, f)
	threads, err := a.AssembleContext(context.Background(), reranked(t2a, t2junk, t2b, t1), 3)
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Equal(t, "T1", threads[0].ThreadID)
	assert.True(t, threads[0].Authoritative)
	assert.Len(t, threads[0].Chunks, 1)
	assert.Equal(t, "T2", threads[1].ThreadID)
	assert.Len(t, threads[1].Chunks, 2)

	joined := JoinContext(threads)
	want := strings.TrimSpace(t1.Text) + "\n\n" + t2a.Text + "\n" + t2b.Text
	assert.Equal(t, want, joined)
	assert.NotContains(t, joined, "Sign in")
}

func TestAssembleContext_authorityTiesKeepArrivalOrder(t *testing.T) {
	long := func(s string) string { return s + " with enough surrounding words to pass the filter." }
	a := newTestAssembler(t, &fakeFetcher{})
	threads, err := a.AssembleContext(context.Background(), reranked(
		chunk("a", "A", "forum", long("first community answer")),
		chunk("b", "B", "https://cisco.com/b", long("cisco doc")),
		chunk("c", "C", "forum", long("second community answer")),
		chunk("d", "D", "https://help.webex.com/d", long("webex doc")),
	), 1)
	require.NoError(t, err)
	var order []string
	for _, tc := range threads {
		order = append(order, tc.ThreadID)
	}
	assert.Equal(t, []string{"B", "D", "A", "C"}, order)
}

func TestAssembleContext_capsAndBackfills(t *testing.T) {
	text := func(n string) string { return "Chunk " + n + " explains how to configure the call manager trunk." }
	f := &fakeFetcher{threads: map[string][]*models.Chunk{
		"T": {
			chunk("0", "T", "", text("zero")),
			chunk("1", "T", "", text("one")),
			chunk("dup", "T", "", "  "+text("one")+"  "),
			chunk("2", "T", "", text("two")),
			chunk("3", "T", "", text("three")),
		},
	}}
	a := newTestAssembler(t, f)
	threads, err := a.AssembleContext(context.Background(), reranked(chunk("1", "T", "", text("one"))), 3)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	ids := []string{}
	for _, c := range threads[0].Chunks {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"1", "0", "2"}, ids, "selection order, duplicates skipped")
	assert.Equal(t, []int{DefaultBackfillLimit}, f.limits)
}

func TestAssembleContext_noBackfillWhenFull(t *testing.T) {
	f := &fakeFetcher{}
	a := newTestAssembler(t, f)
	_, err := a.AssembleContext(context.Background(), reranked(
		chunk("x", "X", "", "A sufficiently long chunk of technical content about Webex."),
	), 1)
	require.NoError(t, err)
	assert.Empty(t, f.calls)
}

func TestAssembleContext_noUsableContext(t *testing.T) {
	f := &fakeFetcher{threads: map[string][]*models.Chunk{"J": {chunk("j2", "J", "", "Skip to content")}}}
	a := newTestAssembler(t, f)
	threads, err := a.AssembleContext(context.Background(), reranked(chunk("j1", "J", "", "Home")), 3)
	assert.ErrorIs(t, err, ErrNoUsableContext)
	require.Len(t, threads, 1)
	assert.Empty(t, threads[0].Text)
	assert.Empty(t, JoinContext(threads))
}

func TestAssembleContext_fetchErrorIsClassified(t *testing.T) {
	f := &fakeFetcher{err: errors.New("dial tcp: connection refused")}
	a := newTestAssembler(t, f)
	_, err := a.AssembleContext(context.Background(), reranked(chunk("a", "A", "", "short")), 3)
	require.Error(t, err)
	assert.Equal(t, apperr.StoreUnavailable, apperr.KindOf(err))
}

func TestAssembleContext_empty(t *testing.T) {
	a := newTestAssembler(t, &fakeFetcher{})
	threads, err := a.AssembleContext(context.Background(), nil, 3)
	assert.ErrorIs(t, err, ErrNoUsableContext)
	assert.Empty(t, threads)
}
