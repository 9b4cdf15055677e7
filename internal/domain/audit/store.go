package audit

import "context"

// DefaultRecentLimit bounds queries that do not set Filter.Limit.
const DefaultRecentLimit = 100

// MaxRecentLimit is the largest Filter.Limit honoured.
const MaxRecentLimit = 1000

// Store persists audit records.
// Implementations: stream writer (stdout), rotating JSON Lines files.
type Store interface {
	// Append stores records. Called from a single worker goroutine.
	Append(ctx context.Context, records ...Record) error

	// Recent returns up to n of the latest records, newest first.
	Recent(n int) []Record

	// Close flushes and releases resources.
	Close() error
}

// Query returns the newest records of store passing f.
func Query(store Store, f Filter) []Record {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	var out []Record
	for _, rec := range store.Recent(MaxRecentLimit) {
		if !f.Matches(rec) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out
}
