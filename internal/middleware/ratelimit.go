// internal/middleware/ratelimit.go
package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/arena/internal/metrics"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

// NewIPRateLimiter allows rps requests per second with the given burst. Buckets unused
// for idle are forgotten; Allow sweeps them at most once per idle period.
func NewIPRateLimiter(rps float64, burst int, idle time.Duration) *IPRateLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &IPRateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow spends one token from ip's bucket.
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	lim := e.limiter
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// Sweep drops idle buckets and returns how many it removed.
func (l *IPRateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

func (l *IPRateLimiter) sweepLocked(now time.Time) int {
	l.lastSweep = now
	cutoff := now.Add(-l.idle)
	n := 0
	for ip, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

// Middleware answers 429 once a client IP runs out of tokens.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			metrics.ConnectionRejected.WithLabelValues("rate_limit").Inc()
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ConnLimiter caps concurrent websocket connections per client IP.
type ConnLimiter struct {
	max int

	mu    sync.Mutex
	count map[string]int
}

// NewConnLimiter allows max connections per IP; zero means no cap.
func NewConnLimiter(max int) *ConnLimiter {
	return &ConnLimiter{max: max, count: make(map[string]int)}
}

// Acquire reserves a connection for ip. Every successful Acquire needs a Release.
func (c *ConnLimiter) Acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max > 0 && c.count[ip] >= c.max {
		metrics.ConnectionRejected.WithLabelValues("too_many_connections").Inc()
		return false
	}
	c.count[ip]++
	return true
}

// Release returns a connection reserved by Acquire.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count[ip] <= 1 {
		delete(c.count, ip)
		return
	}
	c.count[ip]--
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer
// address. The headers are only trustworthy behind a proxy that sets them.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
