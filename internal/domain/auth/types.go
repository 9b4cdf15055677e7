// Package auth identifies the user behind a request and what projects that
// user may see.
package auth

import (
	"strings"
	"time"
)

// Role represents a user role for authorization purposes.
type Role string

const (
	// RoleAdmin sees every project and may change site settings.
	RoleAdmin Role = "admin"
	// RoleMember sees the projects listed on the identity.
	RoleMember Role = "member"
)

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// Identity represents an authenticated user or service.
type Identity struct {
	// ID is the unique identifier for this identity.
	ID string
	// Name is the display name for this identity.
	Name string
	// Roles are the roles assigned to this identity.
	Roles []Role
	// Projects are the project IDs this identity is a member of.
	Projects []string
}

// HasRole returns true if the identity has the specified role.
func (i *Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin is shorthand for HasRole(RoleAdmin).
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// MemberOf reports whether projectID is one of the identity's projects.
// Project IDs compare case-insensitively.
func (i *Identity) MemberOf(projectID string) bool {
	for _, p := range i.Projects {
		if strings.EqualFold(p, projectID) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (i *Identity) Clone() *Identity {
	c := *i
	c.Roles = append([]Role(nil), i.Roles...)
	c.Projects = append([]string(nil), i.Projects...)
	return &c
}

// APIKey represents an API key for authentication.
type APIKey struct {
	// Key is the hashed key value (SHA-256 hex or Argon2id PHC format).
	Key string
	// IdentityID maps this key to an Identity.
	IdentityID string
	// Name is a human-readable label for this key.
	Name string
	// ExpiresAt is when the key expires (nil = never expires).
	ExpiresAt *time.Time
	// Revoked indicates if the key has been revoked.
	Revoked bool
}

// IsExpired returns true if the API key has expired.
func (k *APIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().UTC().After(*k.ExpiresAt)
}
