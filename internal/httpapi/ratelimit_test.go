package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/usezoracle/tba-be/internal/config"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{TTLMs: 60_000, Limit: 3})
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("1.2.3.4"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.allow("1.2.3.4"), "4th request within the window should be rejected")
}

func TestRateLimiterTracksKeysIndependently(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{TTLMs: 60_000, Limit: 1})
	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("b"), "a different key must have its own budget")
	assert.False(t, l.allow("a"))
}

func TestRateLimiterZeroLimitDisablesLimiting(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{TTLMs: 60_000, Limit: 0})
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("x"))
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{TTLMs: 20, Limit: 1})
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.allow("a"), "a new window should reset the count")
}

func TestRateLimiterMiddlewareRejectsOverLimit(t *testing.T) {
	l := newRateLimiter(config.RateLimitConfig{TTLMs: 60_000, Limit: 1})
	handler := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec2.Code)
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	assert.Equal(t, "203.0.113.5", clientIP(req))
}

func TestClientIPFallsBackToRawRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-a-host-port"
	assert.Equal(t, "not-a-host-port", clientIP(req))
}
