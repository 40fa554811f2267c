package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

// SQLiteStore keeps state as JSON rows. Rows older than the TTL are ignored on
// load and purged on open.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewSQLiteStore opens or creates the sessions table at path.
func NewSQLiteStore(ctx context.Context, path string, ttl time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}
	s := &SQLiteStore{db: db, ttl: ttlOrDefault(ttl), logger: logger}
	if n, err := s.purgeExpired(ctx); err != nil {
		logger.Warn("purge expired sessions failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("purged expired sessions", zap.Int64("count", n))
	}
	return s, nil
}

func (s *SQLiteStore) cutoff() int64 {
	return time.Now().Add(-s.ttl).UnixNano()
}

// Load returns the stored state, or a fresh one when missing or expired.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = ? AND updated_at >= ?`, sessionID, s.cutoff(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewConversationState(sessionID), nil
	}
	if err != nil {
		return nil, classify("load", err)
	}
	st, err := decodeState(sessionID, []byte(data))
	if err != nil {
		return nil, classify("load", err)
	}
	return st, nil
}

// Save upserts state.
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, state *models.ConversationState) error {
	data, err := encodeState(state)
	if err != nil {
		return classify("save", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		sessionID, string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return classify("save", err)
	}
	return nil
}

// Delete removes the session row.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return classify("delete", err)
	}
	return nil
}

func (s *SQLiteStore) purgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, s.cutoff())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
