package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a token bucket keyed by client IP, refilled per window.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int
	per     time.Duration
}

type bucket struct {
	ts     time.Time
	tokens int
}

func New(max int, per time.Duration) *Limiter {
	return &Limiter{buckets: map[string]*bucket{}, max: max, per: per}
}

// Allow consumes one token for the given key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil || time.Since(b.ts) > l.per {
		b = &bucket{ts: time.Now(), tokens: l.max}
		l.buckets[key] = b
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}
		if !l.Allow(ip) {
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
