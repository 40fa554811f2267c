package session

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/hyperjump/wraith/internal/models"
)

// MemoryStore keeps state in process with a sliding TTL.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose entries expire ttl after their last save.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	ttl = ttlOrDefault(ttl)
	return &MemoryStore{cache: cache.New(ttl, ttl/2)}
}

// Load returns a copy of the stored state, or a fresh one.
func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("load", err)
	}
	if x, found := m.cache.Get(sessionID); found {
		return x.(*models.ConversationState).Clone(), nil
	}
	return models.NewConversationState(sessionID), nil
}

// Save stores a copy of state.
func (m *MemoryStore) Save(ctx context.Context, sessionID string, state *models.ConversationState) error {
	if err := ctx.Err(); err != nil {
		return classify("save", err)
	}
	if state == nil {
		return classify("save", errors.New("nil state"))
	}
	m.cache.Set(sessionID, state.Clone(), cache.DefaultExpiration)
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.cache.Delete(sessionID)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int { return m.cache.ItemCount() }

// Close flushes the cache.
func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
