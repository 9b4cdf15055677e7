// Package audit contains domain types for the access audit trail.
package audit

import (
	"strings"
	"time"
)

// Decision constants for audit records.
const (
	// DecisionAllow indicates the request was served.
	DecisionAllow = "allow"
	// DecisionDeny indicates the request was refused.
	DecisionDeny = "deny"
)

// Event types.
const (
	// EventSessionConfig is a request for an imaging session's viewer
	// configuration. These reveal study UIDs, so every decision is kept.
	EventSessionConfig = "viewer.session_config"

	// EventSettingsUpdate is a change of the site settings.
	EventSettingsUpdate = "config.settings_update"
)

// Record is one entry of the audit trail.
type Record struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// Event categorizes the record.
	Event string `json:"event"`
	// RequestID correlates the record with request logs.
	RequestID string `json:"request_id,omitempty"`
	// IdentityID is the authenticated caller, empty for anonymous requests.
	IdentityID string `json:"identity_id,omitempty"`
	// RemoteAddr is the connection's peer address.
	RemoteAddr string `json:"remote_addr,omitempty"`

	ProjectID string `json:"project_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Decision is allow or deny.
	Decision string `json:"decision"`
	// Reason explains a deny, e.g. "not_found".
	Reason string `json:"reason,omitempty"`

	// Changes holds the new values of a settings update.
	Changes map[string]string `json:"changes,omitempty"`
}

// Filter selects records. Empty fields match everything.
type Filter struct {
	Event      string
	IdentityID string
	Decision   string
	ProjectID  string
	// Limit caps the result size. Zero means the store default.
	Limit int
}

// Matches reports whether rec passes the filter.
func (f Filter) Matches(rec Record) bool {
	if f.Event != "" && rec.Event != f.Event {
		return false
	}
	if f.IdentityID != "" && rec.IdentityID != f.IdentityID {
		return false
	}
	if f.Decision != "" && !strings.EqualFold(rec.Decision, f.Decision) {
		return false
	}
	if f.ProjectID != "" && rec.ProjectID != f.ProjectID {
		return false
	}
	return true
}
