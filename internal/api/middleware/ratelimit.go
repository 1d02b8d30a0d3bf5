package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/bhashahub/crowdsource/internal/config"
	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
)

const limiterIdleTTL = 30 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated user.
type RateLimiter struct {
	mu      sync.Mutex
	users   map[string]*userLimiter
	limit   rate.Limit
	burst   int
	enabled bool
	pruned  time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter from cfg. A disabled limiter lets every request through.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		users:   make(map[string]*userLimiter),
		limit:   rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:   cfg.Burst,
		enabled: cfg.Enabled && cfg.RequestsPerMinute > 0 && cfg.Burst > 0,
		now:     time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.pruned) > limiterIdleTTL {
		rl.prune(now)
	}

	entry, ok := rl.users[key]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.users[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// prune drops buckets idle for longer than limiterIdleTTL. Callers hold mu.
func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL)
	for key, entry := range rl.users {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.users, key)
		}
	}
	rl.pruned = now
}

// Limit rejects requests with 429 once the caller's bucket is empty. It keys
// on the authenticated identity and falls back to the client IP.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.enabled {
			c.Next()
			return
		}

		key := c.ClientIP()
		if identity, ok := IdentityFrom(c); ok {
			key = identity.ID
		}

		if !rl.get(key).AllowN(rl.now(), 1) {
			prommetrics.RecordRateLimited(c.FullPath())
			c.Header("Retry-After", "60")
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}
