// Package watcher keeps the chunk store in step with thread files on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/metrics"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester is the subset of the indexer the watcher drives.
type Ingester interface {
	IngestFile(ctx context.Context, path string, allowedExts []string) (int, error)
	RemoveFile(ctx context.Context, path string) error
}

// Options configures a Watcher.
type Options struct {
	Roots      []string
	Extensions []string
	Recursive  bool
	Debounce   time.Duration
}

// Watcher re-ingests thread files when they change and drops their threads when they go away.
type Watcher struct {
	ingester Ingester
	opts     Options
	logger   *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher. Roots are made absolute; missing roots are created on Start.
func New(ing Ingester, opts Options, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	roots := make([]string, 0, len(opts.Roots))
	for _, r := range opts.Roots {
		if abs, err := filepath.Abs(r); err == nil {
			roots = append(roots, filepath.Clean(abs))
		}
	}
	opts.Roots = roots
	return &Watcher{
		ingester: ing,
		opts:     opts,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
	}
}

// Roots returns the watched root directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.opts.Roots...)
}

// Start begins watching. It returns once every root is registered; events are
// handled until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.opts.Roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := w.watchTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("watching thread directories",
		zap.Strings("roots", w.opts.Roots),
		zap.Strings("extensions", w.opts.Extensions),
		zap.Bool("recursive", w.opts.Recursive))
	w.wg.Add(1)
	go w.loop(w.ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if ev.Has(fsnotify.Create) && w.opts.Recursive {
				if err := w.watchTree(fsw, path); err != nil {
					w.logger.Warn("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
				w.Sync(ctx, path)
			}
			return
		}
		if matchExtension(path, w.opts.Extensions) {
			w.schedule(ctx, path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if !matchExtension(path, w.opts.Extensions) {
			return
		}
		if err := w.ingester.RemoveFile(ctx, path); err != nil {
			w.logger.Warn("failed to drop threads of removed file", zap.String("path", path), zap.Error(err))
			metrics.ObserveIngest("failed")
			return
		}
		metrics.ObserveIngest("removed")
	}
}

// schedule debounces bursts of writes to one file into a single ingest.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) bool {
	n, err := w.ingester.IngestFile(ctx, path, w.opts.Extensions)
	if err != nil {
		w.logger.Warn("failed to ingest file", zap.String("path", path), zap.Error(err))
		metrics.ObserveIngest("failed")
		return false
	}
	if n > 0 {
		w.logger.Info("file ingested", zap.String("path", path), zap.Int("threads", n))
	}
	metrics.ObserveIngest("ingested")
	return true
}

// Sync ingests every matching file under root, or under every watched root
// when root is empty, and returns how many files were ingested without error.
func (w *Watcher) Sync(ctx context.Context, root string) int {
	roots := w.opts.Roots
	if root != "" {
		roots = []string{root}
	}
	n := 0
	for _, r := range roots {
		_ = filepath.WalkDir(r, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if !w.opts.Recursive && path != r {
					return filepath.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if matchExtension(path, w.opts.Extensions) && w.ingest(ctx, path) {
				n++
			}
			return nil
		})
	}
	return n
}

func (w *Watcher) watchTree(fsw *fsnotify.Watcher, root string) error {
	if !w.opts.Recursive {
		return fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.opts.Roots {
		if root == path || inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// Stop cancels pending ingests, closes the notifier and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.cancel()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	_ = fsw.Close()
	w.wg.Wait()
}
