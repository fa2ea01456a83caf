package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/content-generation-api/internal/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter tracks per-(client, action) token buckets plus a running
// request count for the deny response
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
}

type visitor struct {
	limiter *rate.Limiter
	count   int64
}

// NewRateLimiter creates a limiter from the configured per-minute budget
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:    cfg.Burst,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether the identifier may perform the action now, plus the
// total requests seen for that key
func (rl *RateLimiter) Allow(identifier, action string) (bool, int64) {
	key := identifier + ":" + action

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.count++
	count := v.count
	rl.mu.Unlock()

	return v.limiter.Allow(), count
}

// rateLimitMiddleware rejects requests over the per-client budget with 429.
// Enforced here, in the triggering layer, never inside the pipeline.
func rateLimitMiddleware(rl *RateLimiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, count := rl.Allow(c.ClientIP(), action)
		c.Header("X-RateLimit-Count", fmt.Sprintf("%d", count))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"count": count,
			})
			return
		}
		c.Next()
	}
}
