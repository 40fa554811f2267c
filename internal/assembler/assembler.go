// Package assembler turns reranked chunks into per-thread context blocks.
package assembler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

// ErrNoUsableContext is returned when every thread ends up with no text.
var ErrNoUsableContext = errors.New("no usable context")

// DefaultBackfillLimit bounds the chunks fetched per thread during backfill.
const DefaultBackfillLimit = 5

// ThreadFetcher is the part of the chunk store used for backfill.
type ThreadFetcher interface {
	FetchByThread(ctx context.Context, threadID string, limit int) ([]*models.Chunk, error)
}

// Options configures an Assembler.
type Options struct {
	AuthoritativeDomains []string
	JunkPatterns         []string
	BackfillLimit        int
	StoreTimeout         time.Duration
}

// Assembler selects up to maxPerThread clean chunks per thread, authoritative threads first.
type Assembler struct {
	fetcher   ThreadFetcher
	junk      *JunkFilter
	authority *Authority
	opts      Options
	logger    *zap.Logger
}

// New creates an Assembler. It fails only on an invalid junk pattern.
func New(fetcher ThreadFetcher, opts Options, logger *zap.Logger) (*Assembler, error) {
	junk, err := NewJunkFilter(opts.JunkPatterns)
	if err != nil {
		return nil, err
	}
	if opts.BackfillLimit <= 0 {
		opts.BackfillLimit = DefaultBackfillLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		fetcher:   fetcher,
		junk:      junk,
		authority: NewAuthority(opts.AuthoritativeDomains),
		opts:      opts,
		logger:    logger,
	}, nil
}

// Authority exposes the domain allowlist.
func (a *Assembler) Authority() *Authority { return a.authority }

// IsJunk reports whether text would be filtered out.
func (a *Assembler) IsJunk(text string) bool { return a.junk.IsJunk(text) }

// AssembleContext groups reranked results by thread, orders threads by authority
// (stable), filters junk and backfills short threads from the store. Threads whose
// text ends up empty are kept with an empty Text. Backfill fetch errors are
// classified store errors. ErrNoUsableContext is returned alongside the threads
// when none has text.
func (a *Assembler) AssembleContext(ctx context.Context, reranked []*models.RerankedResult, maxPerThread int) ([]*models.ThreadContext, error) {
	if maxPerThread <= 0 {
		maxPerThread = 1
	}
	threads, candidates := a.partition(reranked)
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Authoritative && !threads[j].Authoritative
	})

	usable := 0
	for _, tc := range threads {
		sel := newSelection(maxPerThread)
		for _, c := range candidates[tc.ThreadID] {
			if !a.junk.IsJunk(c.Text) {
				sel.add(c)
			}
		}
		if !sel.full() {
			if err := a.backfill(ctx, tc.ThreadID, sel); err != nil {
				return nil, err
			}
		}
		tc.Chunks = sel.chunks
		texts := make([]string, len(sel.chunks))
		for i, c := range sel.chunks {
			texts[i] = strings.TrimSpace(c.Text)
		}
		tc.Text = strings.Join(texts, "\n")
		if tc.Text != "" {
			usable++
		}
	}

	a.logger.Debug("assembled context",
		zap.Int("threads", len(threads)),
		zap.Int("usable", usable),
	)
	if usable == 0 {
		return threads, ErrNoUsableContext
	}
	return threads, nil
}

func (a *Assembler) partition(reranked []*models.RerankedResult) ([]*models.ThreadContext, map[string][]*models.Chunk) {
	var threads []*models.ThreadContext
	candidates := make(map[string][]*models.Chunk)
	for _, r := range reranked {
		if r == nil || r.SearchResult == nil || r.Chunk == nil {
			continue
		}
		c := r.Chunk
		if _, ok := candidates[c.ThreadID]; !ok {
			threads = append(threads, &models.ThreadContext{
				ThreadID:      c.ThreadID,
				Source:        c.Source,
				Authoritative: a.authority.IsAuthoritative(c.ThreadID, c.Source),
			})
		}
		candidates[c.ThreadID] = append(candidates[c.ThreadID], c)
	}
	return threads, candidates
}

func (a *Assembler) backfill(ctx context.Context, threadID string, sel *selection) error {
	if a.fetcher == nil {
		return nil
	}
	fctx, cancel := a.storeContext(ctx)
	defer cancel()
	chunks, err := a.fetcher.FetchByThread(fctx, threadID, a.opts.BackfillLimit)
	if err != nil {
		return storage.Classify("fetch_by_thread", err)
	}
	for _, c := range chunks {
		if sel.full() {
			break
		}
		if !a.junk.IsJunk(c.Text) {
			sel.add(c)
		}
	}
	return nil
}

func (a *Assembler) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.StoreTimeout > 0 {
		return context.WithTimeout(ctx, a.opts.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

// JoinContext concatenates the non-empty thread texts in order.
func JoinContext(threads []*models.ThreadContext) string {
	parts := make([]string, 0, len(threads))
	for _, tc := range threads {
		if tc != nil && tc.Text != "" {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// selection collects distinct chunks up to a limit. Duplicates are detected by
// ID and by identical trimmed text.
type selection struct {
	limit  int
	chunks []*models.Chunk
	ids    map[string]bool
	texts  map[string]bool
}

func newSelection(limit int) *selection {
	return &selection{limit: limit, ids: make(map[string]bool), texts: make(map[string]bool)}
}

func (s *selection) full() bool { return len(s.chunks) >= s.limit }

func (s *selection) add(c *models.Chunk) {
	if s.full() {
		return
	}
	text := strings.TrimSpace(c.Text)
	if (c.ID != "" && s.ids[c.ID]) || s.texts[text] {
		return
	}
	if c.ID != "" {
		s.ids[c.ID] = true
	}
	s.texts[text] = true
	s.chunks = append(s.chunks, c)
}
