// Package metrics 集中声明 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiscoveryRequestsTotal 按数据集与结果状态统计发现请求数。
	DiscoveryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copify_discovery_requests_total",
		Help: "Discovery requests by dataset and outcome status.",
	}, []string{"dataset", "status"})

	// DiscoveryDuration 发现请求端到端耗时（秒）。
	DiscoveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "copify_discovery_duration_seconds",
		Help:    "End to end discovery request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dataset"})

	// CountCacheHitsTotal 计数缓存命中次数。
	CountCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copify_count_cache_hits_total",
		Help: "Total count cache hits.",
	})

	// CountCacheMissesTotal 计数缓存未命中次数。
	CountCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copify_count_cache_misses_total",
		Help: "Total count cache misses.",
	})

	// CountDegradedTotal 计数降级为估算值的次数。
	CountDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copify_count_degraded_total",
		Help: "Total count computations that fell back to an estimate.",
	})

	// RateLimitWaitDuration 限流等待时长（秒）。
	RateLimitWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "copify_ratelimit_wait_seconds",
		Help:    "Time spent waiting on the rate limiter in seconds.",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	// RateLimitTimeoutTotal 限流等待超时次数。
	RateLimitTimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copify_ratelimit_timeout_total",
		Help: "Total rate limit waits aborted by context cancellation.",
	})
)
