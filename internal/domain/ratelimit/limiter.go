package ratelimit

import "context"

// Limiter decides whether a caller may make another request.
//
// Implementations use GCRA (Generic Cell Rate Algorithm), which spreads
// requests evenly over the period instead of resetting at window
// boundaries.
type Limiter interface {
	// Allow records a request for key and reports whether it is allowed.
	Allow(ctx context.Context, key string, cfg Config) (Result, error)
}
