package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/obs"
)

// DefaultRetryAfterSeconds is sent in Retry-After when a client is throttled.
const DefaultRetryAfterSeconds = 1

// ClientKey identifies a client by the host part of its remote address.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 Too Many Requests once a client exceeds its limit.
// Requests with an empty key pass through.
func Middleware(limiter *Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			bucket := limiter.get(k)
			if !bucket.Allow() {
				obs.From(r.Context()).Warn("client throttled", "pkg", "ratelimit", "client", k, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			remaining := int(bucket.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
