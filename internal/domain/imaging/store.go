package imaging

import (
	"context"
	"errors"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

// SessionStore looks up imaging sessions on behalf of a user.
// Implementations: in-memory (default), SQLite.
type SessionStore interface {
	// FindSession returns the session with the given ID.
	// Returns ErrSessionNotFound if the session doesn't exist or user may
	// not see it.
	FindSession(ctx context.Context, sessionID string, user *auth.Identity) (*Session, error)
}

// SessionWriter is implemented by stores that can be seeded.
type SessionWriter interface {
	// Put inserts or replaces a session.
	Put(ctx context.Context, session *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns every stored session ordered by ID.
	List(ctx context.Context) ([]*Session, error)
}

var (
	// ErrSessionNotFound is returned when a session doesn't exist or is not
	// visible to the requesting user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSession is returned when a session lacks an ID or project.
	ErrInvalidSession = errors.New("invalid session: id and project are required")
)
