package servertimetable

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clients that have been quiet this long are forgotten
const idleClientTTL = 10 * time.Minute

type clientLimiter struct {
	limits RateLimits

	mu       sync.Mutex
	clients  map[string]*clientEntry
	lastScan time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limits RateLimits) *clientLimiter {
	if limits.Writes <= 0 {
		limits.Writes = DefaultRateLimits.Writes
	}
	if limits.Burst <= 0 {
		limits.Burst = DefaultRateLimits.Burst
	}
	return &clientLimiter{
		limits:   limits,
		clients:  map[string]*clientEntry{},
		lastScan: time.Now(),
	}
}

func (c *clientLimiter) allow(client string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastScan) > idleClientTTL {
		for key, entry := range c.clients {
			if now.Sub(entry.lastSeen) > idleClientTTL {
				delete(c.clients, key)
			}
		}
		c.lastScan = now
	}

	entry, ok := c.clients[client]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(c.limits.Writes, c.limits.Burst)}
		c.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (c *clientLimiter) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.allow(clientKey(r), time.Now()) {
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RealIP has already rewritten RemoteAddr when the server sits behind a proxy
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
