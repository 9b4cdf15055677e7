package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

// ImagingStore implements imaging.SessionStore and imaging.SessionWriter
// with an in-memory map. Thread-safe for concurrent access.
type ImagingStore struct {
	sessions map[string]*imaging.Session
	mu       sync.RWMutex
}

// NewImagingStore creates an empty in-memory session store.
func NewImagingStore() *ImagingStore {
	return &ImagingStore{sessions: make(map[string]*imaging.Session)}
}

// FindSession returns a copy of the session if user may see it.
func (s *ImagingStore) FindSession(_ context.Context, sessionID string, user *auth.Identity) (*imaging.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !imaging.VisibleTo(sess, user) {
		return nil, imaging.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Put inserts or replaces a session.
func (s *ImagingStore) Put(_ context.Context, session *imaging.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("put session %q: %w", session.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Delete removes a session.
func (s *ImagingStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// List returns copies of all sessions ordered by ID.
func (s *ImagingStore) List(_ context.Context) ([]*imaging.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*imaging.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Compile-time interface verification.
var (
	_ imaging.SessionStore  = (*ImagingStore)(nil)
	_ imaging.SessionWriter = (*ImagingStore)(nil)
)
