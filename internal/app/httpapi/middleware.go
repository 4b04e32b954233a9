package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiter throttles clients individually, keyed by remote address.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newRateLimiter(requestsPerSecond float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[key]
	if !ok {
		// A scan across many source addresses must not grow the map
		// without bound.
		if len(rl.limiters) >= 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = lim
	}
	return lim
}

func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(key); err == nil {
			key = host
		}
		if !rl.limiter(key).Allow() {
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsPolicy answers cross-origin browsers for the configured origins.
// An entry of "*" allows every origin; matching is otherwise exact.
type corsPolicy struct {
	origins  []string
	allowAll bool
}

func newCORSPolicy(origins []string) *corsPolicy {
	p := &corsPolicy{origins: origins}
	for _, origin := range origins {
		if origin == "*" {
			p.allowAll = true
		}
	}
	return p
}

func (p *corsPolicy) allowed(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowAll {
		return true
	}
	for _, candidate := range p.origins {
		if candidate == origin {
			return true
		}
	}
	return false
}

func (p *corsPolicy) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); p.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
