package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.RequestsPerSecond != 100 {
		t.Errorf("RequestsPerSecond = %f, want 100", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 200 {
		t.Errorf("Burst = %d, want 200", cfg.Burst)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("CleanupInterval = %v, want 1m", cfg.CleanupInterval)
	}
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   10 * time.Second,
	})

	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if rl.rate != 10 {
		t.Errorf("rate = %f, want 10", rl.rate)
	}
	if rl.burst != 20 {
		t.Errorf("burst = %d, want 20", rl.burst)
	}
	if len(rl.limiters) != 0 {
		t.Errorf("expected empty limiter map, got %d entries", len(rl.limiters))
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})

	client := "ip:192.168.1.100"

	// Burst of 2 is allowed
	if !rl.Allow(client) {
		t.Error("first request should be allowed")
	}
	if !rl.Allow(client) {
		t.Error("second request should be allowed")
	}

	// Burst exhausted
	if rl.Allow(client) {
		t.Error("third request should be denied")
	}

	// Bucket refills at 2/sec
	time.Sleep(600 * time.Millisecond)

	if !rl.Allow(client) {
		t.Error("request after refill should be allowed")
	}
}

func TestRateLimiter_IndependentClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             5,
		CleanupInterval:   time.Minute,
	})

	client1 := "key:alpha"
	client2 := "key:beta"

	for i := 0; i < 5; i++ {
		if !rl.Allow(client1) {
			t.Errorf("client1 request %d should be allowed", i)
		}
		if !rl.Allow(client2) {
			t.Errorf("client2 request %d should be allowed", i)
		}
	}

	if rl.Allow(client1) {
		t.Error("client1 should be rate limited")
	}
	if rl.Allow(client2) {
		t.Error("client2 should be rate limited")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		CleanupInterval:   time.Minute,
	})

	var wg sync.WaitGroup
	numGoroutines := 10
	requestsPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(clientNum int) {
			defer wg.Done()
			client := "ip:192.168.1." + string(rune('0'+clientNum))
			for j := 0; j < requestsPerGoroutine; j++ {
				rl.Allow(client)
			}
		}(i)
	}

	wg.Wait()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestClientKey(t *testing.T) {
	t.Run("api key preferred", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/photos/abc", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		req.Header.Set("X-API-Key", "secret")

		if got := clientKey(req); got != "key:secret" {
			t.Errorf("clientKey() = %q, want %q", got, "key:secret")
		}
	})

	t.Run("fallback to ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/photos/abc", nil)
		req.RemoteAddr = "192.168.1.100:12345"

		if got := clientKey(req); got != "ip:192.168.1.100" {
			t.Errorf("clientKey() = %q, want %q", got, "ip:192.168.1.100")
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr",
			remoteAddr: "192.168.1.100:12345",
			want:       "192.168.1.100",
		},
		{
			name:       "x-forwarded-for chain",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"},
			want:       "203.0.113.1",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.50"},
			want:       "203.0.113.50",
		},
		{
			name:       "forwarded-for wins over real-ip",
			remoteAddr: "10.0.0.1:12345",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"X-Real-IP":       "203.0.113.50",
			},
			want: "203.0.113.1",
		},
		{
			name:       "ipv6",
			remoteAddr: "[2001:db8::1]:12345",
			want:       "[2001:db8::1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_CleanupKeepsActiveClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		CleanupInterval:   100 * time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		rl.Allow("ip:192.168.1." + string(rune('0'+i)))
	}

	rl.mu.RLock()
	initialCount := len(rl.limiters)
	rl.mu.RUnlock()

	if initialCount != 5 {
		t.Errorf("limiter count = %d, want 5", initialCount)
	}

	// Entries were touched just now, so a cleanup pass must keep them
	time.Sleep(200 * time.Millisecond)

	rl.mu.RLock()
	afterCleanup := len(rl.limiters)
	rl.mu.RUnlock()

	if afterCleanup != 5 {
		t.Errorf("limiter count after cleanup = %d, want 5", afterCleanup)
	}
}
