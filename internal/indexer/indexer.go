package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/chunkid"
	"github.com/hyperjump/wraith/internal/embedding"
	"github.com/hyperjump/wraith/internal/extract"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

// Indexer writes threads into the chunk store.
type Indexer struct {
	store        storage.ChunkStore
	embedder     embedding.Embedder
	chunker      *Chunker
	extractor    *extract.Extractor
	storeTimeout time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	stamps map[string]fileStamp
}

// fileStamp remembers what an ingested file looked like and which threads it produced.
type fileStamp struct {
	modTime int64
	size    int64
	threads []string
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(idx *Indexer) { idx.storeTimeout = d }
}

// WithExtractor sets the extractor used for non-JSONL files. Without one,
// files are read as plain text.
func WithExtractor(e *extract.Extractor) Option {
	return func(idx *Indexer) { idx.extractor = e }
}

// New creates an indexer. Chunk size and overlap are in words.
func New(store storage.ChunkStore, embedder embedding.Embedder, chunkSize, chunkOverlap int, opts ...Option) *Indexer {
	idx := &Indexer{
		store:    store,
		embedder: embedder,
		chunker:  NewChunker(chunkSize, chunkOverlap),
		logger:   zap.NewNop(),
		stamps:   make(map[string]fileStamp),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IngestThread replaces every chunk of in.ThreadID with freshly embedded
// chunks and returns how many were stored.
func (idx *Indexer) IngestThread(ctx context.Context, in *models.ThreadInput) (int, error) {
	const op = "ingest_thread"
	if in == nil {
		return 0, apperr.New(apperr.InvalidInput, op, fmt.Errorf("thread is nil"))
	}
	if err := in.Validate(); err != nil {
		return 0, apperr.New(apperr.InvalidInput, op, err)
	}

	var chunks []*models.Chunk
	if len(in.Chunks) > 0 {
		spans := in.Chunks
		if in.Scraped {
			spans = make([]string, len(in.Chunks))
			for i, c := range in.Chunks {
				spans[i] = CleanScraped(c)
			}
		}
		chunks = FromSpans(in.ThreadID, in.Source, spans)
	} else {
		text := in.Text
		if in.Scraped {
			text = CleanScraped(text)
		}
		if in.Title != "" {
			text = in.Title + "\n" + text
		}
		chunks = idx.chunker.Chunk(in.ThreadID, in.Source, text)
	}
	if len(chunks) == 0 {
		return 0, apperr.New(apperr.InvalidInput, op, fmt.Errorf("thread %s has no text after cleaning", in.ThreadID))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, apperr.New(apperr.ScoringFailed, op, fmt.Errorf("embed chunks: %w", err))
	}
	if len(vecs) != len(chunks) {
		return 0, apperr.New(apperr.ScoringFailed, op, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks)))
	}
	now := time.Now().UTC()
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
		chunks[i].CreatedAt = now
	}

	if _, err := idx.DeleteThread(ctx, in.ThreadID); err != nil {
		return 0, err
	}
	sctx, cancel := idx.storeContext(ctx)
	defer cancel()
	if err := idx.store.AddChunks(sctx, chunks); err != nil {
		return 0, storage.Classify("add_chunks", err)
	}
	idx.logger.Debug("thread ingested",
		zap.String("thread_id", in.ThreadID),
		zap.String("source", in.Source),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// DeleteThread removes every chunk of threadID.
func (idx *Indexer) DeleteThread(ctx context.Context, threadID string) (int, error) {
	sctx, cancel := idx.storeContext(ctx)
	defer cancel()
	n, err := idx.store.DeleteThread(sctx, threadID)
	if err != nil {
		return 0, storage.Classify("delete_thread", err)
	}
	return n, nil
}

// IngestFile ingests one file. A .jsonl file holds one thread per line;
// any other file becomes a single thread keyed by its absolute path.
// Unchanged files (same mtime and size) are skipped. Returns the number of
// threads ingested.
func (idx *Indexer) IngestFile(ctx context.Context, path string, allowedExts []string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return 0, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", absPath)
	}
	if idx.unchanged(absPath, info) {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return 0, nil
	}

	var threads []*models.ThreadInput
	if ext == ".jsonl" {
		threads, err = readThreads(absPath)
	} else {
		var text string
		text, err = idx.extractContent(absPath)
		threads = []*models.ThreadInput{{
			ThreadID: chunkid.ForPath(absPath),
			Source:   absPath,
			Title:    filepath.Base(absPath),
			Text:     text,
		}}
	}
	if err != nil {
		return 0, err
	}

	// Threads the file no longer contains are dropped.
	previous := idx.stampFor(absPath).threads
	ids := make([]string, 0, len(threads))
	n := 0
	for _, th := range threads {
		if strings.TrimSpace(th.Text) == "" && len(th.Chunks) == 0 {
			idx.logger.Debug("indexer skipping empty thread", zap.String("path", absPath), zap.String("thread_id", th.ThreadID))
			continue
		}
		if _, err := idx.IngestThread(ctx, th); err != nil {
			return n, fmt.Errorf("%s: %w", absPath, err)
		}
		ids = append(ids, th.ThreadID)
		n++
	}
	for _, id := range previous {
		if !contains(ids, id) {
			if _, err := idx.DeleteThread(ctx, id); err != nil {
				return n, err
			}
		}
	}

	idx.mu.Lock()
	idx.stamps[absPath] = fileStamp{modTime: info.ModTime().UnixNano(), size: info.Size(), threads: ids}
	idx.mu.Unlock()
	idx.logger.Debug("indexer file ingested", zap.String("path", absPath), zap.Int("threads", n))
	return n, nil
}

// RemoveFile deletes the threads produced by a previously ingested file.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	threads := idx.stampFor(absPath).threads
	if len(threads) == 0 {
		threads = []string{chunkid.ForPath(absPath)}
	}
	for _, id := range threads {
		if _, err := idx.DeleteThread(ctx, id); err != nil {
			return err
		}
	}
	idx.mu.Lock()
	delete(idx.stamps, absPath)
	idx.mu.Unlock()
	return nil
}

// IngestDirectory walks dir and ingests each regular file whose extension is in
// allowedExts (all files when empty). Returns the number of files ingested and
// the first error encountered.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if !recursive && path != absDir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := idx.IngestFile(ctx, path, allowedExts); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

func (idx *Indexer) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if idx.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, idx.storeTimeout)
}

func (idx *Indexer) stampFor(absPath string) fileStamp {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.stamps[absPath]
}

func (idx *Indexer) unchanged(absPath string, info os.FileInfo) bool {
	st := idx.stampFor(absPath)
	return st.modTime == info.ModTime().UnixNano() && st.size == info.Size() && st.modTime != 0
}

func (idx *Indexer) extractContent(path string) (string, error) {
	if idx.extractor != nil {
		text, err := idx.extractor.Extract(path)
		if err != nil {
			return "", fmt.Errorf("extract content: %w", err)
		}
		return text, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// readThreads parses a JSONL file of ThreadInput records. Blank lines are skipped.
func readThreads(path string) ([]*models.ThreadInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open threads: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []*models.ThreadInput
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var th models.ThreadInput
		if err := json.Unmarshal([]byte(raw), &th); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, &th)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read threads: %w", err)
	}
	return out, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
