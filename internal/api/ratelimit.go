package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/marcus/taskboard/internal/reqctx"
	"github.com/marcus/taskboard/internal/store"
)

// RateLimiter implements per-key fixed-window rate limiting.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count    int
	windowAt time.Time
}

// NewRateLimiter creates an empty RateLimiter. Stale buckets are dropped by
// Cleanup, which the server calls from its maintenance loop.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

// Allow checks if the key is within the rate limit (limit per 1-minute window).
func (rl *RateLimiter) Allow(key string, limit int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowAt) >= time.Minute {
		rl.buckets[key] = &bucket{count: 1, windowAt: now}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// Cleanup removes buckets whose window ended over a minute ago.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-2 * time.Minute)
	n := 0
	for k, b := range rl.buckets {
		if b.windowAt.Before(cutoff) {
			delete(rl.buckets, k)
			n++
		}
	}
	return n
}

// Endpoint classes used for limits and the rate_limit_events log.
const (
	classAuth  = "auth"
	classWrite = "write"
	classRead  = "read"
)

// isAuthEndpoint reports whether r is a credential-submitting request: the
// JSON auth routes or the browser login and register forms.
func isAuthEndpoint(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/v1/auth/") {
		return true
	}
	return r.Method == http.MethodPost && (r.URL.Path == "/login" || r.URL.Path == "/register")
}

// authRateLimitMiddleware rate-limits auth endpoints by client IP and
// records violations in the store.
func authRateLimitMiddleware(rl *RateLimiter, limit int, st *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isAuthEndpoint(r) {
				ip := clientIP(r)
				if !rl.Allow("ip:"+ip, limit) {
					if err := st.InsertRateLimitEvent("", ip, classAuth); err != nil {
						logFor(r.Context()).Error("log rate limit event", "err", err)
					}
					writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// withRateLimit wraps an authenticated handler with per-session rate
// limiting. Mutations and reads have separate budgets.
func (s *Server) withRateLimit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r.Context())
		if user == nil {
			handler(w, r)
			return
		}
		class, limit := classRead, s.config.RateLimitRead
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			class, limit = classWrite, s.config.RateLimitWrite
		}
		key := fmt.Sprintf("session:%s:%s", user.SessionID, class)
		if !s.rateLimiter.Allow(key, limit) {
			if err := s.store.InsertRateLimitEvent(user.SessionID, clientIP(r), class); err != nil {
				logFor(r.Context()).Error("log rate limit event", "err", err)
			}
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "rate limit exceeded")
			return
		}
		handler(w, r)
	}
}

// clientIP returns the caller's address as resolved by clientIPMiddleware.
func clientIP(r *http.Request) string {
	return reqctx.ClientIP(r)
}
