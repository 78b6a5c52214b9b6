package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per client key.
type ClientRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	now      func() time.Time
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
		now:      time.Now,
	}
}

// GetLimiter returns the limiter for key, creating it on first use.
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.r, l.b)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Prune forgets clients idle for longer than idle and returns how many were dropped.
func (l *ClientRateLimiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	n := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			n++
		}
	}
	return n
}

// RateLimiter limits requests per client. Authenticated callers are keyed by
// subject, everyone else by client IP.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimiterWith(NewClientRateLimiter(r, b))
}

// RateLimiterWith is RateLimiter over an existing limiter set.
func RateLimiterWith(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := IdentityFrom(c); ok {
			key = "sub:" + id.Subject
		}

		if !limiter.GetLimiter(key).Allow() {
			retry := 1
			if limiter.r > 0 {
				retry = int(math.Ceil(1 / float64(limiter.r)))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
