// internal/chat/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// StableKey derives a deterministic cache key from any JSON-encodable
// payload. The payload is canonicalized first (re-decoded into generic maps
// so object keys serialize sorted), then hashed, so logically equal inputs
// with different field order produce the same key.
func StableKey(namespace string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}

	return fmt.Sprintf("%s:%016x", namespace, xxhash.Sum64(canonical)), nil
}

// ReplyCache stores rendered replies in redis. A nil client disables caching:
// every lookup misses and every store is a no-op, so the pipeline code never
// branches on whether caching is configured.
type ReplyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *ReplyCache {
	return &ReplyCache{client: client, ttl: ttl}
}

// GetJSON loads and decodes a cached value. Returns false on miss, on a
// disabled cache, and on any redis or decode error; a flaky cache must read
// as a miss, never as a request failure.
func (c *ReplyCache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false
	}
	return true
}

// SetJSON encodes and stores a value under key with the configured TTL.
// Failures are swallowed for the same reason GetJSON's are.
func (c *ReplyCache) SetJSON(ctx context.Context, key string, value interface{}) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}
