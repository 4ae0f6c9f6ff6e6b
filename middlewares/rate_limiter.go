package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

// NewRateLimiter allows burst requests per interval for each client.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Every(interval / time.Duration(burst)),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
	}
}

// NewStrictRateLimiter is meant for the login endpoint: 5 attempts a minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(5, time.Minute).RateLimit()
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.clients[ip]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients[ip] = l
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please wait a moment",
			})
			return
		}
		c.Next()
	}
}
