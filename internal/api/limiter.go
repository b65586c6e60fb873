package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a client's limiter is kept after its last request
const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client IP
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

func newClientLimiters(perSecond float64, burst int) *clientLimiters {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiters{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (c *clientLimiters) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.limiters {
		if now.Sub(entry.lastSeen) > limiterIdle {
			delete(c.limiters, key)
		}
	}

	entry, exists := c.limiters[ip]
	if !exists {
		entry = &clientLimiter{limiter: rate.NewLimiter(c.rate, c.burst)}
		c.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// limit rejects requests beyond the client's rate with 429
func (c *clientLimiters) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !c.get(ip).Allow() {
			respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many refresh requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
