package ratelimit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, rate, burst float64) *RateLimiter {
	t.Helper()

	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})

	return NewRedisRateLimiter(rdb, slog.Default(), "copify:ratelimit:test", rate, burst)
}

func TestAcquire_WithinBurst(t *testing.T) {
	r := newTestLimiter(t, 10, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
}

func TestAcquire_TimesOutWhenExhausted(t *testing.T) {
	// rate 极低，烧掉 burst 后下一次必须等待，ctx 先到期
	r := newTestLimiter(t, 0.001, 1)
	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.Acquire(ctx)
	if err != ErrRateLimitTimeout {
		t.Fatalf("expected ErrRateLimitTimeout, got %v", err)
	}
}

func TestAcquire_DisabledLimiterIsNoop(t *testing.T) {
	r := newTestLimiter(t, 0, 0)
	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("disabled limiter should allow: %v", err)
	}
}
