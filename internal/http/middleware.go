package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CustomLoggerMiddleware logs HTTP requests with slog, tagging each entry
// with the request id. Request bodies are never logged: login and fetch
// payloads carry passwords and secrets.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// limiterEntry pairs a rate limiter with its last use so stale entries can
// be evicted.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

// staleLimiterAge is how long an idle IP keeps its bucket before eviction.
const staleLimiterAge = 3 * time.Minute

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// allow reports whether the request from ip fits within its rate budget.
func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.entries[ip]
	if !ok {
		l.evictStaleLocked(now)
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

// evictStaleLocked drops buckets for IPs not seen recently. Runs under the
// mutex, only when a new IP shows up, so steady-state traffic pays nothing.
func (l *ipRateLimiter) evictStaleLocked(now time.Time) {
	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) > staleLimiterAge {
			delete(l.entries, ip)
		}
	}
}

// RateLimitMiddleware limits requests per client IP, answering 429 once the
// budget is exhausted. Vault endpoints are throttled to slow down online
// password guessing.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	limiter := newIPRateLimiter(rps, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.allow(ip) {
			logger.Warn("rate limit exceeded",
				slog.String("client_ip", ip),
				slog.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
			return
		}

		c.Next()
	}
}
