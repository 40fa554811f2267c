package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hyperjump/wraith/internal/models"
)

// chunkRecord is the gorm model for the chunks table.
type chunkRecord struct {
	ID         string           `gorm:"primaryKey;type:text"`
	ThreadID   string           `gorm:"type:text;not null"`
	Source     string           `gorm:"type:text;not null"`
	Text       string           `gorm:"type:text;not null"`
	ChunkIndex int              `gorm:"not null"`
	Embedding  *pgvector.Vector `gorm:"type:vector"`
	CreatedAt  time.Time        `gorm:"autoCreateTime"`
}

func (chunkRecord) TableName() string { return "chunks" }

func (r *chunkRecord) toModel() *models.Chunk {
	c := &models.Chunk{
		ID:         r.ID,
		ThreadID:   r.ThreadID,
		Source:     r.Source,
		Text:       r.Text,
		ChunkIndex: r.ChunkIndex,
		CreatedAt:  r.CreatedAt,
	}
	if r.Embedding != nil {
		c.Embedding = r.Embedding.Slice()
	}
	return c
}

func fromModel(c *models.Chunk) *chunkRecord {
	r := &chunkRecord{
		ID:         c.ID,
		ThreadID:   c.ThreadID,
		Source:     c.Source,
		Text:       c.Text,
		ChunkIndex: c.ChunkIndex,
		CreatedAt:  c.CreatedAt,
	}
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		r.Embedding = &v
	}
	return r
}

// scoredRecord carries a similarity or rank alongside the row.
type scoredRecord struct {
	chunkRecord
	Score float64
}

// PostgresChunkStore stores chunks in Postgres with pgvector for dense search
// and full-text search (ts_rank_cd) for sparse search.
type PostgresChunkStore struct {
	db         *gorm.DB
	dimensions int
	logger     *zap.Logger
}

// NewPostgresChunkStore connects with dsn and creates the vector extension,
// the chunks table and a GIN index over the text search vector if missing.
func NewPostgresChunkStore(ctx context.Context, dsn string, dimensions int, log *zap.Logger) (*PostgresChunkStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &PostgresChunkStore{db: db, dimensions: dimensions, logger: log}
	if err := s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresChunkStore) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	vectorType := "vector"
	if s.dimensions > 0 {
		vectorType = fmt.Sprintf("vector(%d)", s.dimensions)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding ` + vectorType + `,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_thread ON chunks (thread_id, chunk_index)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON chunks USING GIN (to_tsvector('english', text))`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate chunks: %w", err)
		}
	}
	return nil
}

// VectorQuery orders by cosine distance (<=>) and reports 1 - distance as the score.
func (s *PostgresChunkStore) VectorQuery(ctx context.Context, embedding []float32, k int) ([]*models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	q := pgvector.NewVector(embedding)
	var rows []scoredRecord
	err := s.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, 1 - (embedding <=> ?) AS score", q).
		Where("embedding IS NOT NULL").
		Order(clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{q}}).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.SearchResult, len(rows))
	for i := range rows {
		out[i] = vectorResult(rows[i].toModel(), rows[i].Score)
	}
	return out, nil
}

// orTSQuery turns the plain query into a tsquery that matches any term.
const orTSQuery = `replace(plainto_tsquery('english', ?)::text, '&', '|')::tsquery`

// TextQuery runs full-text search over chunk text, ranked by ts_rank_cd.
func (s *PostgresChunkStore) TextQuery(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	var rows []scoredRecord
	err := s.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, ts_rank_cd(to_tsvector('english', text), "+orTSQuery+") AS score", query).
		Where("to_tsvector('english', text) @@ "+orTSQuery, query).
		Order("score DESC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.SearchResult, len(rows))
	for i := range rows {
		out[i] = textResult(rows[i].toModel(), rows[i].Score)
	}
	return out, nil
}

// FetchByThread returns up to limit chunks of threadID ordered by chunk index.
func (s *PostgresChunkStore) FetchByThread(ctx context.Context, threadID string, limit int) ([]*models.Chunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []chunkRecord
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("chunk_index").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Chunk, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// AddChunks upserts chunks by ID.
func (s *PostgresChunkStore) AddChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	records := make([]*chunkRecord, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) > 0 && s.dimensions > 0 && len(c.Embedding) != s.dimensions {
			return fmt.Errorf("chunk %s: embedding has %d dimensions, want %d", c.ID, len(c.Embedding), s.dimensions)
		}
		records[i] = fromModel(c)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(records, 200).Error
}

// DeleteThread removes every chunk of threadID.
func (s *PostgresChunkStore) DeleteThread(ctx context.Context, threadID string) (int, error) {
	res := s.db.WithContext(ctx).Where("thread_id = ?", threadID).Delete(&chunkRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// Stats returns chunk and thread counts. Disk usage is the table's total relation size.
func (s *PostgresChunkStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "postgres"}
	row := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*), COUNT(DISTINCT thread_id), COUNT(embedding), pg_total_relation_size('chunks') FROM chunks`,
	).Row()
	var vectors int64
	if err := row.Scan(&st.Chunks, &st.Threads, &vectors, &st.DiskUsageBytes); err != nil {
		return nil, err
	}
	st.VectorIndexSize = int(vectors)
	return st, nil
}

// Close closes the connection pool.
func (s *PostgresChunkStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
