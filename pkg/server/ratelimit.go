package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit configures per-client request limiting on the HTTP surface.
// A zero RequestsPerSecond disables limiting.
type RateLimit struct {
	RequestsPerSecond int
	Burst             int
}

// WithRateLimit limits tool traffic per client IP.
func WithRateLimit(cfg RateLimit) Option {
	return func(s *Server) {
		s.rateLimit = cfg
	}
}

// rateLimiter creates a per-IP rate limiting middleware.
func rateLimiter(cfg RateLimit) gin.HandlerFunc {
	burst := cfg.Burst
	if burst < 1 {
		burst = cfg.RequestsPerSecond
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*rate.Limiter)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := clients[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
			clients[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
