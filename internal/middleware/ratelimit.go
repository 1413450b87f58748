package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter with its buckets in Redis, so limits
// hold across replicas. State is injected at startup; there is no ambient
// module-level bucket map.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(addr, password string, limit int, window time.Duration) *RateLimiter {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow increments the caller's window counter and reports whether it is
// still under the limit. Redis being down fails open: dropping traffic over
// a limiter outage is worse than briefly not limiting.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(rl.window.Seconds()))

	count, err := rl.rdb.Incr(ctx, bucket).Result()
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing request", "error", err)
		return true
	}
	if count == 1 {
		rl.rdb.Expire(ctx, bucket, rl.window)
	}
	return count <= int64(rl.limit)
}

// Middleware limits by client IP plus route path. A nil limiter (no Redis
// configured) disables limiting entirely.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}
		key := c.ClientIP() + ":" + c.FullPath()
		if !rl.Allow(c.Request.Context(), key) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
