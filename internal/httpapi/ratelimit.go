package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/config"
)

// rateLimiter is a fixed-window limiter keyed by client IP, driven by the
// config.RateLimitConfig recognized in spec.md §6. A limit of 0 disables
// limiting entirely.
type rateLimiter struct {
	cfg    config.RateLimitConfig
	window time.Duration

	mu     sync.Mutex
	counts map[string]*windowCount
}

type windowCount struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	window := time.Duration(cfg.TTLMs) * time.Millisecond
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{cfg: cfg, window: window, counts: make(map[string]*windowCount)}
}

func (l *rateLimiter) allow(key string) bool {
	if l.cfg.Limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	wc, ok := l.counts[key]
	if !ok || now.After(wc.resetAt) {
		wc = &windowCount{resetAt: now.Add(l.window)}
		l.counts[key] = wc
	}
	wc.count++
	return wc.count <= l.cfg.Limit
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeErr(w, apperr.RateLimited("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
