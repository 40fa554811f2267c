package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/wraith/internal/models"
)

const redisKeyPrefix = "wraith:session:"

// RedisStore keeps state as JSON values with a TTL refreshed on every save.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to url (redis://host:port/db) and pings it.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("session.redis_url is empty")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, classify("connect", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttlOrDefault(ttl)}
}

// Load returns the stored state, or a fresh one when the key is missing.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewConversationState(sessionID), nil
	}
	if err != nil {
		return nil, classify("load", err)
	}
	st, err := decodeState(sessionID, data)
	if err != nil {
		return nil, classify("load", err)
	}
	return st, nil
}

// Save writes state and refreshes the TTL.
func (r *RedisStore) Save(ctx context.Context, sessionID string, state *models.ConversationState) error {
	data, err := encodeState(state)
	if err != nil {
		return classify("save", err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return classify("save", err)
	}
	return nil
}

// Delete removes the session key.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return classify("delete", err)
	}
	return nil
}

// Close closes the client.
func (r *RedisStore) Close() error { return r.rdb.Close() }
