package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc selects the bucket a request is charged against.
type KeyFunc func(c *gin.Context) string

// ByClientIP charges requests per client address.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// Limiter hands out one token bucket per key.
type Limiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	ttl       time.Duration
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a limiter allowing perSecond requests with the given burst. A non-positive
// rate disables limiting.
func New(perSecond float64, burst int, key KeyFunc) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if key == nil {
		key = ByClientIP
	}
	return &Limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		key:     key,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string, now time.Time) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if now.Sub(l.lastSweep) >= l.ttl {
		l.evict(now)
		l.lastSweep = now
	}
	l.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

// evict drops buckets idle for longer than ttl; callers hold mu. Allow runs it at most
// once per ttl.
func (l *Limiter) evict(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware(onReject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(l.key(c), time.Now()) {
			c.Next()
			return
		}
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(l.limit)))
		if onReject != nil {
			onReject(c)
			c.Abort()
			return
		}
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 || limit >= 1 {
		return 1
	}
	return int(1/float64(limit) + 0.5)
}
