package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/tgrelay/internal/config"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// rateLimiter is a per-key sliding window counter.
type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	// lastSweep is when idle clients were last forgotten.
	lastSweep time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// prune drops timestamps that fell out of the window. Caller holds the lock.
func (rl *rateLimiter) prune(key string, now time.Time) []time.Time {
	times := rl.requests[key]
	valid := times[:0]
	for _, t := range times {
		if now.Sub(t) <= rl.window {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = valid
	return valid
}

func (rl *rateLimiter) isAllowed(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweepLocked(now)
	}

	valid := rl.prune(key, now)
	if len(valid) >= rl.limit {
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// sweepLocked forgets idle clients so the map does not grow without bound.
// It runs at most once per window, from isAllowed. Caller holds the lock.
func (rl *rateLimiter) sweepLocked(now time.Time) {
	for key := range rl.requests {
		rl.prune(key, now)
	}
	rl.lastSweep = now
}

// RateLimitMiddleware limits requests per client IP. A non-positive limit or window disables it.
func RateLimitMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	return func(c *gin.Context) {
		if !limiter.isAllowed(c.ClientIP()) {
			utils.LogWarn(c.Request.Context(), "Rate limit exceeded", utils.Fields{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			})
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":          utils.NewRateLimitError(),
				"correlation_id": c.GetString("correlation_id"),
				"timestamp":      time.Now().Format(time.RFC3339),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
