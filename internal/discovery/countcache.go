package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCountTTL 计数缓存默认有效期。
const DefaultCountTTL = 60 * time.Second

// CountCache 缓存按过滤签名计算的候选总数。
//
// 这是引擎中唯一的跨请求共享可变状态，实现必须支持多请求并发读写。
// 显式注入而非隐藏单例，便于替换为分布式缓存或在测试中替换。
// 两个并发请求同时未命中同一签名时会各自计算一次——接受这种重复工作，
// 不做 single-flight 抑制。
type CountCache interface {
	// Get 返回签名对应的未过期计数。
	Get(ctx context.Context, signature string) (int64, bool)
	// Set 写入计数并重置其时间戳。
	Set(ctx context.Context, signature string, count int64)
	// TTL 返回缓存有效期。
	TTL() time.Duration
}

type countEntry struct {
	count      int64
	computedAt time.Time
}

// MemoryCountCache 进程内计数缓存：互斥锁保护的 map，过期靠惰性判断。
type MemoryCountCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]countEntry
	now     func() time.Time // 可注入时钟，测试 TTL 边界用
}

// NewMemoryCountCache 创建进程内计数缓存，ttl 非正值取默认 60 秒。
func NewMemoryCountCache(ttl time.Duration) *MemoryCountCache {
	if ttl <= 0 {
		ttl = DefaultCountTTL
	}
	return &MemoryCountCache{
		ttl:     ttl,
		entries: make(map[string]countEntry),
		now:     time.Now,
	}
}

func (c *MemoryCountCache) Get(_ context.Context, signature string) (int64, bool) {
	c.mu.RLock()
	entry, ok := c.entries[signature]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if c.now().Sub(entry.computedAt) >= c.ttl {
		return 0, false
	}
	return entry.count, true
}

func (c *MemoryCountCache) Set(_ context.Context, signature string, count int64) {
	c.mu.Lock()
	c.entries[signature] = countEntry{count: count, computedAt: c.now()}
	c.mu.Unlock()
}

func (c *MemoryCountCache) TTL() time.Duration {
	return c.ttl
}

const countKeyPrefix = "copify:discovery:count:"

// RedisCountCache 用 Redis 承载计数缓存，多实例部署时共享。
//
// 签名先做 sha256 再入键，避免把任意长度的过滤串直接当键名。
// Redis 故障按未命中处理：计数路径本来就允许重算。
type RedisCountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCountCache 创建 Redis 计数缓存，ttl 非正值取默认 60 秒。
func NewRedisCountCache(rdb *redis.Client, ttl time.Duration) *RedisCountCache {
	if ttl <= 0 {
		ttl = DefaultCountTTL
	}
	return &RedisCountCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCountCache) Get(ctx context.Context, signature string) (int64, bool) {
	raw, err := c.rdb.Get(ctx, countKey(signature)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *RedisCountCache) Set(ctx context.Context, signature string, count int64) {
	// 写失败不致命，留给下一次未命中重算
	_ = c.rdb.Set(ctx, countKey(signature), strconv.FormatInt(count, 10), c.ttl).Err()
}

func (c *RedisCountCache) TTL() time.Duration {
	return c.ttl
}

func countKey(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return countKeyPrefix + hex.EncodeToString(sum[:])
}
