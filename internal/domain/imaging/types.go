// Package imaging describes the imaging sessions the viewer can open and the
// rules deciding who may see them.
package imaging

import (
	"strings"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

// Session is one imaging session (an XNAT experiment) as far as the viewer
// is concerned.
type Session struct {
	// ID is the accession number of the session.
	ID string
	// ProjectID is the primary project owning the session.
	ProjectID string
	// Label is the display label, unique within the primary project.
	Label string
	// StudyInstanceUID is the DICOM study UID, empty when unknown.
	StudyInstanceUID string
	// SharedProjects are the projects the session is shared into.
	SharedProjects []string
}

// HasProject reports whether the session is shared into projectID.
// The primary project is matched separately by callers; this predicate only
// looks at the share list, using exact comparison.
func (s *Session) HasProject(projectID string) bool {
	for _, p := range s.SharedProjects {
		if p == projectID {
			return true
		}
	}
	return false
}

// StudyUID returns the trimmed study UID and whether it is set.
func (s *Session) StudyUID() (string, bool) {
	uid := strings.TrimSpace(s.StudyInstanceUID)
	return uid, uid != ""
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.SharedProjects = append([]string(nil), s.SharedProjects...)
	return &c
}

// Validate checks the fields every stored session needs.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.ProjectID) == "" {
		return ErrInvalidSession
	}
	return nil
}

// VisibleTo reports whether user may read the session. Admins see every
// session; other identities need membership in the primary project or in a
// project the session is shared into.
func VisibleTo(s *Session, user *auth.Identity) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	if user.MemberOf(s.ProjectID) {
		return true
	}
	for _, p := range s.SharedProjects {
		if user.MemberOf(p) {
			return true
		}
	}
	return false
}
