// Package ratelimit describes per-caller request throttling.
package ratelimit

import (
	"fmt"
	"time"
)

// Config defines the rate limiting parameters.
type Config struct {
	// Rate is the number of allowed requests in the period.
	Rate int

	// Burst is the maximum number of requests that can occur at once.
	Burst int

	// Period is the time window for Rate.
	Period time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Remaining is the number of requests left before throttling.
	Remaining int

	// RetryAfter is how long until the next request is allowed.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// KeyType identifies what a rate limit key is derived from.
type KeyType string

const (
	// KeyTypeIP keys anonymous callers by remote address.
	KeyTypeIP KeyType = "ip"

	// KeyTypeIdentity keys authenticated callers by identity ID.
	KeyTypeIdentity KeyType = "identity"
)

// FormatKey returns a structured key, e.g. "identity:alice".
func FormatKey(keyType KeyType, value string) string {
	return fmt.Sprintf("%s:%s", keyType, value)
}
