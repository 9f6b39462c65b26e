package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/vedablog/internal/platform/logger"
)

const defaultKeyPrefix = "vedablog:sess:"

// RedisStore keeps one JSON value per session with a TTL matching ExpiresAt.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	log    *logger.Logger
}

func NewRedisStore(rdb redis.UniversalClient, prefix string, log *logger.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, log: log.With("store", "RedisSessionStore")}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		r.log.Warn("dropping undecodable session", "session_id", id, "error", err)
		_ = r.rdb.Del(ctx, r.key(id)).Err()
		return nil, nil
	}
	if s.Expired(time.Now()) {
		return nil, nil
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return ErrNoSession
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error { return nil }
