package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCache(rdb, time.Hour), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "abc"); err != nil || ok {
		t.Fatalf("Expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	want := Entry{BookmarkID: 7, URL: "https://example.com"}
	if err := c.Set(ctx, "abc", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("url:abc") {
		t.Error("Expected key url:abc in redis")
	}

	got, ok, err := c.Get(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if err := c.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Error("Expected miss after delete")
	}
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "abc", Entry{BookmarkID: 1, URL: "https://example.com"})
	mr.FastForward(2 * time.Hour)

	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	c, mr := setupTestCache(t)
	mr.Set("url:abc", "not-json")

	if _, _, err := c.Get(context.Background(), "abc"); err == nil {
		t.Error("Expected decode error for corrupt entry")
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	rdb.Close()

	mr.Close()
	if _, err := Connect(context.Background(), mr.Addr(), "", 0); err == nil {
		t.Error("Expected error connecting to a stopped server")
	}
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	if err := c.Set(ctx, "abc", Entry{BookmarkID: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "abc"); ok {
		t.Error("Noop cache should never hit")
	}
}
