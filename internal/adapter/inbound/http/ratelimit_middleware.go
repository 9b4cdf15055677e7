package http

import (
	"net"
	"net/http"
	"strconv"

	"github.com/volview-xnat/volviewd/internal/domain/ratelimit"
)

// RateLimitMiddleware rejects callers over their budget with 429 and a
// Retry-After header. Authenticated callers are keyed by identity,
// anonymous ones by the connection's remote IP. Forwarded client addresses
// are not trusted for this.
//
// Limiter errors fail open.
func RateLimitMiddleware(limiter ratelimit.Limiter, cfg ratelimit.Config, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyType, value := rateLimitKey(r)
			res, err := limiter.Allow(r.Context(), ratelimit.FormatKey(keyType, value), cfg)
			if err != nil {
				LoggerFromContext(r.Context()).Warn("rate limiter failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				if metrics != nil {
					metrics.RateLimited.WithLabelValues(string(keyType)).Inc()
				}
				LoggerFromContext(r.Context()).Debug("rate limited", "key_type", keyType, "retry_after", res.RetryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) (ratelimit.KeyType, string) {
	if id := IdentityFromContext(r.Context()); id != nil {
		return ratelimit.KeyTypeIdentity, id.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return ratelimit.KeyTypeIP, host
}

// retryAfterSeconds rounds up so clients never retry too early.
func retryAfterSeconds(res ratelimit.Result) int {
	secs := int(res.RetryAfter.Seconds())
	if float64(secs) < res.RetryAfter.Seconds() {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
