package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

func limited(rl *IPRateLimiter) http.Handler {
	return rateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(1), 5)
	defer rl.Close()
	handler := limited(rl)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sections", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimit_BlocksExcessRequests(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.01), 2)
	defer rl.Close()
	handler := limited(rl)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sections", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sections", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Errorf("error = %q", body["error"])
	}

	// Another client keeps its own budget.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sections", nil)
	req.RemoteAddr = "10.0.0.2:12345"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("different IP: expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_PreflightNotCounted(t *testing.T) {
	rl := NewIPRateLimiter(rate.Limit(0.01), 1)
	defer rl.Close()
	handler := limited(rl)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/view", nil)
		req.RemoteAddr = "10.0.0.9:1"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/view", nil)
	req.RemoteAddr = "10.0.0.9:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 after preflights, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		remote string
		want   string
	}{
		{"forwarded chain", "X-Forwarded-For", "203.0.113.5, 10.0.0.1", "10.0.0.1:80", "203.0.113.5"},
		{"real ip", "X-Real-IP", " 198.51.100.7 ", "10.0.0.1:80", "198.51.100.7"},
		{"ipv4 remote", "", "", "192.168.1.3:5555", "192.168.1.3"},
		{"ipv6 remote", "", "", "[::1]:5555", "::1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			if got := clientIP(req); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
