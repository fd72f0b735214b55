package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ToolListKey is the cache key for the first unfiltered page of the public listing.
const ToolListKey = "tools:list:front"

// ToolListTTL bounds staleness of the cached front page.
const ToolListTTL = 2 * time.Minute

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) on miss or nil client.
func GetJSON(ctx context.Context, client *redis.Client, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL. No-op without a client.
func SetJSON(ctx context.Context, client *redis.Client, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on miss it calls fetch (which must write into dest)
// and stores the result best-effort.
func Aside(ctx context.Context, client *redis.Client, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, client, key, dest)
	if err == nil && found {
		return nil
	}
	// Cache read errors degrade to a source fetch.

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, client, key, dest, ttl)
	return nil
}

// Invalidate removes the key. No-op without a client.
func Invalidate(ctx context.Context, client *redis.Client, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}
