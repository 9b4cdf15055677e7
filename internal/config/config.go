// Package config provides configuration types for volviewd.
//
// Configuration is file-based (volviewd.yaml) with environment overrides.
// Runtime state that administrators change while the server runs (site
// setting overrides, identities added later, imaging session records) lives
// in state.json instead, see internal/adapter/outbound/state.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/viewer"
)

// DevAPIKey is the raw API key accepted in dev mode when no keys are
// configured.
const DevAPIKey = "dev-api-key"

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// AppConfig is the top-level configuration for volviewd.
type AppConfig struct {
	// Server configures the HTTP server listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// VolView holds the deployment defaults of the viewer settings. Site
	// overrides stored in state.json take precedence.
	VolView VolViewConfig `yaml:"volview" mapstructure:"volview"`

	// State configures the state.json site store.
	State StateConfig `yaml:"state" mapstructure:"state"`

	// Sessions selects where imaging session records are kept.
	Sessions SessionsConfig `yaml:"sessions" mapstructure:"sessions"`

	// Auth configures file-based identities and API keys. Entries from
	// state.json are merged on top.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Audit configures the access audit trail.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// DevMode enables a development identity and debug logging.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g. "127.0.0.1:8080").
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// ContextPath is the path the application is mounted under, e.g.
	// "/xnat". Empty mounts at the root.
	ContextPath string `yaml:"context_path" mapstructure:"context_path" validate:"context_path"`

	// ReadHeaderTimeout bounds how long a client may take to send headers.
	ReadHeaderTimeout string `yaml:"read_header_timeout" mapstructure:"read_header_timeout" validate:"omitempty,duration"`

	// TLSCertFile and TLSKeyFile enable HTTPS on HTTPAddr. Both or neither
	// must be set.
	TLSCertFile string `yaml:"tls_cert_file" mapstructure:"tls_cert_file" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `yaml:"tls_key_file" mapstructure:"tls_key_file" validate:"required_with=TLSCertFile"`

	// Trace exports request spans to stdout.
	Trace bool `yaml:"trace" mapstructure:"trace"`

	// RateLimit throttles the application endpoints per caller.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-caller throttling. Callers are keyed by
// identity when authenticated and by remote IP otherwise.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Rate is the number of requests allowed per Period.
	Rate int `yaml:"rate" mapstructure:"rate" validate:"omitempty,min=1"`

	// Burst is the number of requests allowed at once. Defaults to Rate.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"omitempty,min=1"`

	// Period is the window Rate applies to, e.g. "1m".
	Period string `yaml:"period" mapstructure:"period" validate:"omitempty,duration"`
}

// PeriodDuration parses Period, falling back to one minute.
func (c RateLimitConfig) PeriodDuration() time.Duration {
	d, err := time.ParseDuration(c.Period)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// VolViewConfig holds the deployment-level defaults of the four settings.
type VolViewConfig struct {
	DicomwebBasePath string `yaml:"dicomweb_base_path" mapstructure:"dicomweb_base_path"`
	ViewerEntryPoint string `yaml:"viewer_entry_point" mapstructure:"viewer_entry_point"`
	ShellPath        string `yaml:"shell_path" mapstructure:"shell_path"`
	ServerName       string `yaml:"server_name" mapstructure:"server_name"`
}

// Defaults converts the section into viewer.Defaults.
func (c VolViewConfig) Defaults() viewer.Defaults {
	return viewer.Defaults{
		DicomwebBasePath: c.DicomwebBasePath,
		ViewerEntryPoint: c.ViewerEntryPoint,
		ShellPath:        c.ShellPath,
		ServerName:       c.ServerName,
	}
}

// StateConfig configures the state.json file.
type StateConfig struct {
	// Path is the location of state.json.
	Path string `yaml:"path" mapstructure:"path"`

	// Watch reloads settings and credentials when the file changes on disk.
	// Defaults to true.
	Watch bool `yaml:"watch" mapstructure:"watch"`
}

// SessionsConfig selects the imaging session store.
type SessionsConfig struct {
	// Backend is "memory" (seeded from state.json) or "sqlite".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory sqlite"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AuditConfig configures the access audit trail of session config
// decisions and settings changes.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Dir receives rotating JSON Lines files. Empty writes to stdout.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// RetentionDays is how long audit files are kept.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days" validate:"omitempty,min=1"`

	// MaxFileSizeMB rotates a day's file once it grows past this size.
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb" validate:"omitempty,min=1"`
}

// AuthConfig configures identities and API keys.
type AuthConfig struct {
	Identities []IdentityConfig `yaml:"identities" mapstructure:"identities" validate:"omitempty,dive"`
	APIKeys    []APIKeyConfig   `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive"`
}

// IdentityConfig defines a user or service identity.
type IdentityConfig struct {
	ID       string   `yaml:"id" mapstructure:"id" validate:"required"`
	Name     string   `yaml:"name" mapstructure:"name"`
	Roles    []string `yaml:"roles" mapstructure:"roles" validate:"required,min=1,dive,oneof=admin member"`
	Projects []string `yaml:"projects" mapstructure:"projects"`
}

// APIKeyConfig maps an API key hash to an identity.
type APIKeyConfig struct {
	// KeyHash is "sha256:<hex>" or an Argon2id PHC string.
	KeyHash    string `yaml:"key_hash" mapstructure:"key_hash" validate:"required,key_hash"`
	IdentityID string `yaml:"identity_id" mapstructure:"identity_id" validate:"required"`
}

// ReadHeaderTimeoutDuration parses Server.ReadHeaderTimeout. Validation has
// already rejected malformed values, so a parse failure yields the default.
func (c *AppConfig) ReadHeaderTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadHeaderTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// SetDevDefaults applies permissive defaults for development mode.
// These defaults are applied BEFORE validation so required fields are satisfied.
func (c *AppConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}

	c.Server.LogLevel = "debug"

	if len(c.Auth.Identities) == 0 {
		c.Auth.Identities = []IdentityConfig{
			{
				ID:    "dev-user",
				Name:  "Development User",
				Roles: []string{string(auth.RoleAdmin)},
			},
		}
	}
	if len(c.Auth.APIKeys) == 0 {
		c.Auth.APIKeys = []APIKeyConfig{
			{
				KeyHash:    "sha256:" + auth.HashKey(DevAPIKey),
				IdentityID: c.Auth.Identities[0].ID,
			},
		}
	}
}

// SetDefaults applies default values to the configuration.
func (c *AppConfig) SetDefaults() {
	// Bind to localhost only; exposing the server is an explicit choice.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ReadHeaderTimeout == "" {
		c.Server.ReadHeaderTimeout = "10s"
	}

	if c.Server.RateLimit.Rate == 0 {
		c.Server.RateLimit.Rate = 120
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = c.Server.RateLimit.Rate
	}
	if c.Server.RateLimit.Period == "" {
		c.Server.RateLimit.Period = "1m"
	}

	if c.VolView.DicomwebBasePath == "" {
		c.VolView.DicomwebBasePath = viewer.DefaultDicomwebBasePath
	}
	if c.VolView.ViewerEntryPoint == "" {
		c.VolView.ViewerEntryPoint = viewer.DefaultViewerEntryPoint
	}
	if c.VolView.ShellPath == "" {
		c.VolView.ShellPath = viewer.DefaultShellPath
	}
	if c.VolView.ServerName == "" {
		c.VolView.ServerName = viewer.DefaultServerName
	}

	if c.State.Path == "" {
		c.State.Path = "./state.json"
	}
	// viper.IsSet distinguishes "not set" from an explicit false.
	if !viper.IsSet("state.watch") {
		c.State.Watch = true
	}

	if c.Sessions.Backend == "" {
		c.Sessions.Backend = SessionBackendMemory
	}

	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 30
	}
	if c.Audit.MaxFileSizeMB == 0 {
		c.Audit.MaxFileSizeMB = 50
	}
}
