package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultLimiterIdle is how long a client's limiter is kept without requests.
const DefaultLimiterIdle = 10 * time.Minute

// ClientLimiters hands out one token bucket per client IP. Buckets of clients
// that stay quiet for the idle period are evicted, so the set stays bounded by
// the recently active clients.
type ClientLimiters struct {
	buckets *cache.Cache
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewClientLimiters creates the bucket set. idle <= 0 uses DefaultLimiterIdle.
func NewClientLimiters(r rate.Limit, b int, idle time.Duration) *ClientLimiters {
	if idle <= 0 {
		idle = DefaultLimiterIdle
	}
	return &ClientLimiters{
		buckets: cache.New(idle, idle),
		r:       r,
		b:       b,
	}
}

// For returns the bucket of ip, creating it on first use. Every call pushes
// the eviction deadline of the bucket back by the idle period.
func (l *ClientLimiters) For(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		l.buckets.SetDefault(ip, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.buckets.SetDefault(ip, limiter)
	return limiter
}

// Tracked reports whether ip currently holds a bucket.
func (l *ClientLimiters) Tracked(ip string) bool {
	_, ok := l.buckets.Get(ip)
	return ok
}

// RateLimiter rejects clients that exceed r requests per second (burst b)
// with 429.
func RateLimiter(r rate.Limit, b int, idle time.Duration) gin.HandlerFunc {
	return Limit(NewClientLimiters(r, b, idle))
}

// Limit is RateLimiter over an existing bucket set.
func Limit(limiters *ClientLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.For(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
