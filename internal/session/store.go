// Package session persists conversation state between turns and serialises
// turns of the same session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

// Store is a key-value store of conversation state keyed by session id.
// Load returns a fresh state when the session does not exist.
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.ConversationState, error)
	Save(ctx context.Context, sessionID string, state *models.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.DatabasePath, cfg.TTL, logger)
	default:
		return nil, fmt.Errorf("unknown session backend: %s (supported: memory, redis, sqlite)", cfg.Backend)
	}
}

// classify converts a backend error into a store kind. A closed redis client
// counts as unavailable.
func classify(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return apperr.New(apperr.StoreUnavailable, "session_"+op, err)
	}
	return storage.Classify("session_"+op, err)
}

func encodeState(state *models.ConversationState) ([]byte, error) {
	return json.Marshal(state)
}

func decodeState(sessionID string, data []byte) (*models.ConversationState, error) {
	st := models.NewConversationState(sessionID)
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if st.Messages == nil {
		st.Messages = []models.Message{}
	}
	st.SessionID = sessionID
	return st, nil
}

// ttlOrDefault keeps sessions for a day unless configured.
func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 24 * time.Hour
	}
	return ttl
}
