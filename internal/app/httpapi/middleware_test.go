package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitThrottlesPerClient(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{RequestsPerSecond: 1, Burst: 1})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.1:9999"
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request from same host throttled, got %d", second.Code)
	}

	// A different client has its own bucket.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:4411"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", other.Code)
	}
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	for i := 0; i < 50; i++ {
		if rec := doRequest(h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d throttled with no limit configured: %d", i, rec.Code)
		}
	}
}

func TestCORSEchoesAllowedOrigin(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{CORSOrigins: []string{"https://ops.example"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers for unknown origin, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{
		AuthToken:   "s3cret",
		CORSOrigins: []string{"*"},
	})

	// Preflights carry no Authorization header and must not hit auth.
	req := httptest.NewRequest(http.MethodOptions, "/v1/payments", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example" {
		t.Fatalf("expected wildcard policy to echo origin, got %q", got)
	}
}

func TestExactOriginMatchOnly(t *testing.T) {
	policy := newCORSPolicy([]string{"https://ops.example"})

	if policy.allowed("https://evil-ops.example") {
		t.Fatal("suffix lookalike must not be allowed")
	}
	if policy.allowed("") {
		t.Fatal("empty origin must not be allowed")
	}
	if !policy.allowed("https://ops.example") {
		t.Fatal("configured origin must be allowed")
	}
}
