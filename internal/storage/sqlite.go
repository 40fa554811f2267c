package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/keyword"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/vector"
)

// LocalOptions configures a LocalChunkStore.
type LocalOptions struct {
	DatabasePath    string // ":memory:" for tests
	BleveIndexPath  string // empty for an in-memory index
	VectorIndexPath string // empty to skip persisting the vector index
	Dimensions      int
	FuzzySparse     bool
}

// LocalChunkStore keeps chunk rows in SQLite, sparse postings in Bleve and
// embeddings in an in-memory vector index persisted next to the database.
type LocalChunkStore struct {
	db      *sql.DB
	sparse  *keyword.BleveIndex
	vectors *vector.MemoryIndex
	opts    LocalOptions
	logger  *zap.Logger
}

// NewLocalChunkStore opens or creates the database and indices. The vector
// index is loaded from disk and rebuilt from stored embeddings when it is stale.
func NewLocalChunkStore(ctx context.Context, opts LocalOptions, logger *zap.Logger) (*LocalChunkStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := OpenSQLite(opts.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := initChunkSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	kw, err := keyword.NewBleveIndex(opts.BleveIndexPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	vecs, err := vector.NewMemoryIndex(opts.Dimensions)
	if err != nil {
		_ = kw.Close()
		_ = db.Close()
		return nil, err
	}
	s := &LocalChunkStore{db: db, sparse: kw, vectors: vecs, opts: opts, logger: logger}

	if err := vecs.Load(opts.VectorIndexPath); err != nil {
		logger.Warn("vector index unreadable, rebuilding", zap.String("path", opts.VectorIndexPath), zap.Error(err))
	}
	if err := s.syncVectorIndex(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.syncKeywordIndex(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens a SQLite database with WAL enabled. Parent directories are created.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func initChunkSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_thread ON chunks(thread_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// syncVectorIndex rebuilds the vector index from stored embeddings when its
// size disagrees with the database.
func (s *LocalChunkStore) syncVectorIndex(ctx context.Context) error {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL`).Scan(&n); err != nil {
		return fmt.Errorf("count embeddings: %w", err)
	}
	if int64(s.vectors.Size()) == n {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	fresh, _ := vector.NewMemoryIndex(s.opts.Dimensions)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		emb := decodeEmbedding(blob)
		if len(emb) != s.opts.Dimensions {
			s.logger.Warn("skipping embedding with wrong dimension", zap.String("chunk_id", id), zap.Int("dims", len(emb)))
			continue
		}
		if err := fresh.Add(ctx, []string{id}, [][]float32{emb}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.vectors = fresh
	s.logger.Info("vector index rebuilt", zap.Int("vectors", fresh.Size()))
	return nil
}

// syncKeywordIndex re-indexes every chunk when the Bleve document count
// disagrees with the database, e.g. after the index directory was removed.
func (s *LocalChunkStore) syncKeywordIndex(ctx context.Context) error {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	indexed, err := s.sparse.DocCount()
	if err != nil {
		return fmt.Errorf("keyword doc count: %w", err)
	}
	if int64(indexed) == n {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, thread_id, source, text, chunk_index, created_at FROM chunks`)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	var chunks []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			rows.Close()
			return err
		}
		chunks = append(chunks, c)
	}
	rows.Close()
	if err := s.sparse.IndexBatch(ctx, chunks); err != nil {
		return fmt.Errorf("rebuild keyword index: %w", err)
	}
	s.logger.Info("keyword index rebuilt", zap.Int("chunks", len(chunks)))
	return nil
}

// VectorQuery returns the k chunks nearest to embedding by cosine similarity.
func (s *LocalChunkStore) VectorQuery(ctx context.Context, embedding []float32, k int) ([]*models.SearchResult, error) {
	hits, err := s.vectors.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := s.getChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if c, ok := chunks[h.ID]; ok {
			out = append(out, vectorResult(c, h.Score))
		}
	}
	return out, nil
}

// TextQuery returns up to k chunks matching any query term, by Bleve relevance.
func (s *LocalChunkStore) TextQuery(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	hits, err := s.sparse.Search(ctx, query, k, &keyword.SearchOptions{FuzzyEnabled: s.opts.FuzzySparse})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := s.getChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if c, ok := chunks[h.ID]; ok {
			out = append(out, textResult(c, h.Score))
		}
	}
	return out, nil
}

// FetchByThread returns up to limit chunks of threadID ordered by chunk index.
func (s *LocalChunkStore) FetchByThread(ctx context.Context, threadID string, limit int) ([]*models.Chunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, source, text, chunk_index, created_at
		 FROM chunks WHERE thread_id = ? ORDER BY chunk_index LIMIT ?`,
		threadID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *LocalChunkStore) getChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	out := make(map[string]*models.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, source, text, chunk_index, created_at
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func scanChunk(rows *sql.Rows) (*models.Chunk, error) {
	var c models.Chunk
	if err := rows.Scan(&c.ID, &c.ThreadID, &c.Source, &c.Text, &c.ChunkIndex, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddChunks inserts or replaces chunks in one transaction, then updates both indices.
func (s *LocalChunkStore) AddChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, thread_id, source, text, chunk_index, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	var vecIDs []string
	var vecs [][]float32
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		var blob []byte
		if len(c.Embedding) > 0 {
			if len(c.Embedding) != s.opts.Dimensions {
				return fmt.Errorf("chunk %s: embedding has %d dimensions, want %d", c.ID, len(c.Embedding), s.opts.Dimensions)
			}
			blob = encodeEmbedding(c.Embedding)
			vecIDs = append(vecIDs, c.ID)
			vecs = append(vecs, c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.ThreadID, c.Source, c.Text, c.ChunkIndex, blob, c.CreatedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if err := s.sparse.IndexBatch(ctx, chunks); err != nil {
		return fmt.Errorf("keyword index: %w", err)
	}
	if err := s.vectors.Add(ctx, vecIDs, vecs); err != nil {
		return fmt.Errorf("vector index: %w", err)
	}
	return nil
}

// DeleteThread removes a thread's rows and index entries.
func (s *LocalChunkStore) DeleteThread(ctx context.Context, threadID string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE thread_id = ?`, threadID)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE thread_id = ?`, threadID); err != nil {
		return 0, err
	}
	if _, err := s.sparse.DeleteThread(ctx, threadID); err != nil {
		return 0, fmt.Errorf("keyword index: %w", err)
	}
	if err := s.vectors.Remove(ctx, ids); err != nil {
		return 0, fmt.Errorf("vector index: %w", err)
	}
	return len(ids), nil
}

// Stats returns chunk and thread counts plus on-disk footprint.
func (s *LocalChunkStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "local", VectorIndexSize: s.vectors.Size()}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT thread_id) FROM chunks`,
	).Scan(&st.Chunks, &st.Threads); err != nil {
		return nil, err
	}
	var paths []string
	if s.opts.DatabasePath != ":memory:" {
		paths = append(paths, s.opts.DatabasePath)
	}
	paths = append(paths, s.opts.BleveIndexPath, s.opts.VectorIndexPath)
	usage, err := DiskUsageBytes(paths...)
	if err != nil {
		s.logger.Warn("disk usage unavailable", zap.Error(err))
	}
	st.DiskUsageBytes = usage
	return st, nil
}

// Flush persists the vector index.
func (s *LocalChunkStore) Flush() error {
	return s.vectors.Save(s.opts.VectorIndexPath)
}

// Close persists the vector index and closes the indices and database.
func (s *LocalChunkStore) Close() error {
	var firstErr error
	if err := s.Flush(); err != nil {
		firstErr = err
	}
	if err := s.sparse.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func encodeEmbedding(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

func decodeEmbedding(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
