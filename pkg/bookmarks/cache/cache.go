package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "url:"

// Entry is what a short code resolves to.
type Entry struct {
	BookmarkID uint   `json:"bookmark_id"`
	URL        string `json:"url"`
}

// Cache resolves short codes without touching the database.
type Cache interface {
	Get(ctx context.Context, shortURL string) (Entry, bool, error)
	Set(ctx context.Context, shortURL string, e Entry) error
	Delete(ctx context.Context, shortURL string) error
}

// RedisCache stores entries as JSON under "url:<short_url>".
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Connect dials Redis and pings it once.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, shortURL string) (Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+shortURL).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %q: %w", shortURL, err)
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, shortURL string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+shortURL, raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, shortURL string) error {
	return c.rdb.Del(ctx, keyPrefix+shortURL).Err()
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }
func (Noop) Set(context.Context, string, Entry) error         { return nil }
func (Noop) Delete(context.Context, string) error             { return nil }
