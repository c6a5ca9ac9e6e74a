// Package middleware holds HTTP middleware for the API server.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

// staleAfter is how long an idle client keeps its bucket before cleanup.
const staleAfter = 5 * time.Minute

// RateLimiter applies a token-bucket limit per client. Clients are keyed
// by API key when the request carries one, by IP otherwise, so one noisy
// key behind a shared proxy cannot starve the others.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	lastSeen map[string]time.Time
}

// RateLimiterConfig tunes the per-client buckets.
type RateLimiterConfig struct {
	// RequestsPerSecond is the steady-state refill rate per client.
	RequestsPerSecond float64
	// Burst is how many requests a client may spend at once.
	Burst int
	// CleanupInterval is how often stale client buckets are removed.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig allows 100 requests per second with a burst
// of 200 per client.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		CleanupInterval:   time.Minute,
	}
}

// NewRateLimiter builds the limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		cleanup:  cfg.CleanupInterval,
		lastSeen: make(map[string]time.Time),
	}

	go rl.cleanupLoop()

	return rl
}

// getLimiter returns the bucket for a client, creating one if needed.
func (rl *RateLimiter) getLimiter(clientKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lastSeen[clientKey] = time.Now()

	limiter, exists := rl.limiters[clientKey]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[clientKey] = limiter
	}

	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		threshold := time.Now().Add(-staleAfter)
		for key, lastSeen := range rl.lastSeen {
			if lastSeen.Before(threshold) {
				delete(rl.limiters, key)
				delete(rl.lastSeen, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow reports whether a request from the given client should proceed.
func (rl *RateLimiter) Allow(clientKey string) bool {
	return rl.getLimiter(clientKey).Allow()
}

// Middleware rejects requests from clients that exhausted their bucket
// with a 429 and a retry hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			apperrors.WriteErrorWithStatus(w, http.StatusTooManyRequests,
				apperrors.RateLimitedError(1))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller for rate-limiting purposes.
func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return "key:" + key
	}
	return "ip:" + clientIP(r)
}

// clientIP extracts the client IP, preferring proxy headers. The first
// entry in X-Forwarded-For is the original client.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
