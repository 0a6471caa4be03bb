package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"copify/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

const acquireTimeout = 2 * time.Second

// RateLimit 对请求应用全局令牌桶限流，等待超时返回 429。
func RateLimit(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), acquireTimeout)
		defer cancel()

		if err := limiter.Acquire(ctx); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimitTimeout) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			} else {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
