package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryCountCache_TTLBoundary(t *testing.T) {
	clock := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	c := NewMemoryCountCache(60 * time.Second)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	c.Set(ctx, "sig", 42)

	clock = clock.Add(59 * time.Second)
	if v, ok := c.Get(ctx, "sig"); !ok || v != 42 {
		t.Fatalf("expected cached value at t0+59s, got %d %v", v, ok)
	}

	clock = clock.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "sig"); ok {
		t.Fatalf("expected expiry at t0+61s")
	}
}

func TestMemoryCountCache_MissOnUnknownSignature(t *testing.T) {
	c := NewMemoryCountCache(0)
	if c.TTL() != DefaultCountTTL {
		t.Fatalf("expected default ttl, got %v", c.TTL())
	}
	if _, ok := c.Get(context.Background(), "nope"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestMemoryCountCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCountCache(time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int64) {
			defer wg.Done()
			c.Set(ctx, "shared", n)
		}(int64(i))
		go func() {
			defer wg.Done()
			c.Get(ctx, "shared")
		}()
	}
	wg.Wait()

	if v, ok := c.Get(ctx, "shared"); !ok || v < 0 || v >= 50 {
		t.Fatalf("unexpected final value: %d %v", v, ok)
	}
}

func TestRedisCountCache_SetGetAndExpiry(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer s.Close()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})

	c := NewRedisCountCache(rdb, 60*time.Second)
	ctx := context.Background()

	c.Set(ctx, "sig", 17)
	if v, ok := c.Get(ctx, "sig"); !ok || v != 17 {
		t.Fatalf("expected 17, got %d %v", v, ok)
	}

	s.FastForward(61 * time.Second)
	if _, ok := c.Get(ctx, "sig"); ok {
		t.Fatalf("expected redis entry to expire")
	}
}

func TestRedisCountCache_DownRedisIsAMiss(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	c := NewRedisCountCache(rdb, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "sig", 5)
	s.Close() // 之后的访问都失败

	if _, ok := c.Get(ctx, "sig"); ok {
		t.Fatalf("expected miss when redis is unreachable")
	}
	c.Set(ctx, "sig", 6) // 写失败也不 panic
}
