// Package state provides file-based persistence for volviewd runtime state.
//
// The state.json file is the site-wide store: it holds the VolView settings
// overrides, identities, API keys and imaging session records that survive
// restarts. This package provides atomic writes, file locking, backups and a
// change watcher.
package state

import "time"

// CurrentVersion is the schema version written by this build.
const CurrentVersion = "1"

// AppState is the top-level structure persisted in state.json.
type AppState struct {
	// Version is the schema version for forward compatibility. Currently "1".
	Version string `json:"version"`

	// SitePreferences are the site-wide setting overrides keyed by
	// preference name (e.g. "volview.server-name").
	SitePreferences map[string]string `json:"site_preferences"`

	// Identities are the known users and services.
	Identities []IdentityEntry `json:"identities"`

	// APIKeys are the authentication keys mapped to identities.
	APIKeys []APIKeyEntry `json:"api_keys"`

	// ImagingSessions are session records seeded into the session store.
	ImagingSessions []ImagingSessionEntry `json:"imaging_sessions,omitempty"`

	// CreatedAt is when this state file was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this state file was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentityEntry represents a known user or service identity.
type IdentityEntry struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Roles are the assigned roles ("admin" or "member").
	Roles []string `json:"roles"`

	// Projects are the project IDs the identity is a member of.
	Projects []string `json:"projects,omitempty"`
}

// APIKeyEntry represents an API key mapped to an identity.
type APIKeyEntry struct {
	// ID identifies the key for revocation. Keys written by hand may omit it.
	ID string `json:"id,omitempty"`

	// KeyHash is "sha256:<hex>" or an Argon2id PHC string.
	KeyHash string `json:"key_hash"`

	// IdentityID references the owning IdentityEntry.
	IdentityID string `json:"identity_id"`

	// Name is a human-readable label.
	Name string `json:"name,omitempty"`

	// ExpiresAt is when the key expires (nil = never).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Revoked marks a key that may no longer authenticate.
	Revoked bool `json:"revoked,omitempty"`
}

// ImagingSessionEntry is a persisted imaging session record.
type ImagingSessionEntry struct {
	ID               string   `json:"id"`
	ProjectID        string   `json:"project_id"`
	Label            string   `json:"label"`
	StudyInstanceUID string   `json:"study_instance_uid,omitempty"`
	SharedProjects   []string `json:"shared_projects,omitempty"`
}

// Preference implements viewer.PreferenceSource over SitePreferences.
func (s *AppState) Preference(key string) (string, bool) {
	if s == nil || s.SitePreferences == nil {
		return "", false
	}
	v, ok := s.SitePreferences[key]
	return v, ok
}
