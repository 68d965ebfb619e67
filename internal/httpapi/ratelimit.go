package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumenauth/authd/internal/config"
	"golang.org/x/time/rate"
)

// perClientLimiter is a simplified, scope-proportionate rendition of
// giantswarm-mcp-oauth/security/ratelimit.go's LRU-bounded per-identifier
// limiter map: a plain map plus a periodic sweep instead of a
// container/list LRU, since this server's request volume doesn't warrant
// the full eviction machinery.
type perClientLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientEntry
	rule       config.RateLimitRule
	maxEntries int
}

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newPerClientLimiter(rule config.RateLimitRule) *perClientLimiter {
	l := &perClientLimiter{
		limiters:   make(map[string]*clientEntry),
		rule:       rule,
		maxEntries: 10_000,
	}
	go l.sweepLoop()
	return l
}

func (l *perClientLimiter) allow(identifier string) bool {
	if l.rule.Max <= 0 {
		return true
	}
	every := l.rule.Window / time.Duration(l.rule.Max)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[identifier]
	if !ok {
		if len(l.limiters) >= l.maxEntries {
			log.Warn("httpapi: rate limiter at capacity, rejecting new identifier")
			return false
		}
		entry = &clientEntry{limiter: rate.NewLimiter(rate.Every(every), l.rule.Max)}
		l.limiters[identifier] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (l *perClientLimiter) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for id, entry := range l.limiters {
			if time.Since(entry.lastAccess) > 30*time.Minute {
				delete(l.limiters, id)
			}
		}
		l.mu.Unlock()
	}
}

// rateLimitMiddleware enforces rule per client IP, matching the spec §6
// `rateLimit.authorize` / `rateLimit.token` configuration knobs.
func rateLimitMiddleware(rule config.RateLimitRule) gin.HandlerFunc {
	limiter := newPerClientLimiter(rule)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "slow_down",
				"error_description": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
