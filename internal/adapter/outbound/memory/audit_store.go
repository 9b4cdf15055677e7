package memory

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/volview-xnat/volviewd/internal/domain/audit"
)

const defaultRecentCap = 1000

// AuditStore implements audit.Store by writing JSON lines to a stream,
// usually stdout, and keeping a bounded ring of recent records for queries.
type AuditStore struct {
	encoder *json.Encoder
	mu      sync.Mutex
	ring    []audit.Record
	head    int // next write position
	count   int
}

// NewAuditStore creates a store writing to w. A nil writer keeps records
// in memory only. Capacity defaults to 1000.
func NewAuditStore(w io.Writer, capacity int) *AuditStore {
	if capacity <= 0 {
		capacity = defaultRecentCap
	}
	s := &AuditStore{ring: make([]audit.Record, capacity)}
	if w != nil {
		s.encoder = json.NewEncoder(w)
	}
	return s
}

// Append writes records and adds them to the ring.
func (s *AuditStore) Append(_ context.Context, records ...audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if s.encoder != nil {
			if err := s.encoder.Encode(rec); err != nil {
				return err
			}
		}
		s.ring[s.head] = rec
		s.head = (s.head + 1) % len(s.ring)
		if s.count < len(s.ring) {
			s.count++
		}
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *AuditStore) Recent(n int) []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > s.count {
		n = s.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]audit.Record, n)
	for i := 0; i < n; i++ {
		out[i] = s.ring[(s.head-1-i+len(s.ring))%len(s.ring)]
	}
	return out
}

// Close is a no-op; the caller owns the writer.
func (s *AuditStore) Close() error { return nil }

// Compile-time interface verification.
var _ audit.Store = (*AuditStore)(nil)
