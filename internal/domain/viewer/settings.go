// Package viewer holds the site-wide VolView settings: where the DICOMweb
// endpoint lives, where the viewer and its shell page are served from, and
// the display name of the server.
package viewer

import (
	"strings"

	"github.com/volview-xnat/volviewd/internal/domain/urlpath"
)

// Site store keys for the four overridable settings.
const (
	KeyDicomwebBasePath = "volview.dicomweb.base-path"
	KeyViewerEntryPoint = "volview.viewer.entry-point"
	KeyShellPath        = "volview.shell.path"
	KeyServerName       = "volview.server-name"
)

// Keys lists every overridable key in display order.
var Keys = []string{KeyDicomwebBasePath, KeyViewerEntryPoint, KeyShellPath, KeyServerName}

// Built-in defaults used when neither the config file nor the site store
// provide a value.
const (
	DefaultDicomwebBasePath = "/xapi/dicomweb/projects"
	DefaultViewerEntryPoint = "/volview/app/index.html"
	DefaultShellPath        = "/plugin-resources/xnat-volview/index.html"
	DefaultServerName       = "XNAT DICOMweb"
)

// Defaults are the deployment-level values for each setting.
type Defaults struct {
	DicomwebBasePath string
	ViewerEntryPoint string
	ShellPath        string
	ServerName       string
}

// BuiltinDefaults returns the compiled-in defaults.
func BuiltinDefaults() Defaults {
	return Defaults{
		DicomwebBasePath: DefaultDicomwebBasePath,
		ViewerEntryPoint: DefaultViewerEntryPoint,
		ShellPath:        DefaultShellPath,
		ServerName:       DefaultServerName,
	}
}

// PreferenceSource is the site-wide store of overrides.
type PreferenceSource interface {
	// Preference returns the stored value for key, if any.
	Preference(key string) (string, bool)
}

// Preferences is a map-backed PreferenceSource.
type Preferences map[string]string

// Preference implements PreferenceSource.
func (p Preferences) Preference(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Settings is an immutable snapshot of the effective values. Build one with
// NewSettings; the zero value has every setting empty.
type Settings struct {
	dicomwebBasePath string
	viewerEntryPoint string
	shellPath        string
	serverName       string
	overridden       map[string]bool
}

// NewSettings layers the site store over defaults. A stored value wins only
// when it is non-blank after trimming.
func NewSettings(defaults Defaults, src PreferenceSource) Settings {
	s := Settings{overridden: make(map[string]bool, len(Keys))}
	pick := func(key, def string) string {
		if src != nil {
			if v, ok := src.Preference(key); ok {
				if v = strings.TrimSpace(v); v != "" {
					s.overridden[key] = true
					return v
				}
			}
		}
		return def
	}
	s.dicomwebBasePath = NormalizePath(pick(KeyDicomwebBasePath, defaults.DicomwebBasePath))
	s.viewerEntryPoint = pick(KeyViewerEntryPoint, defaults.ViewerEntryPoint)
	s.shellPath = pick(KeyShellPath, defaults.ShellPath)
	s.serverName = pick(KeyServerName, defaults.ServerName)
	return s
}

// DicomwebBasePath is the normalized DICOMweb root shared by all projects.
func (s Settings) DicomwebBasePath() string { return s.dicomwebBasePath }

// ProjectDicomwebPath is the DICOMweb root for one project.
func (s Settings) ProjectDicomwebPath(projectID string) string {
	return urlpath.Join(s.dicomwebBasePath, projectID)
}

// ViewerEntryPoint is the viewer's index page, relative or absolute.
func (s Settings) ViewerEntryPoint() string { return s.viewerEntryPoint }

// ShellPath is the resource path of the HTML shell page.
func (s Settings) ShellPath() string { return s.shellPath }

// ServerName is the display name sent to the viewer.
func (s Settings) ServerName() string { return s.serverName }

// Overridden reports whether key came from the site store.
func (s Settings) Overridden(key string) bool { return s.overridden[key] }

// Value returns the effective value for a site store key.
func (s Settings) Value(key string) (string, bool) {
	switch key {
	case KeyDicomwebBasePath:
		return s.dicomwebBasePath, true
	case KeyViewerEntryPoint:
		return s.viewerEntryPoint, true
	case KeyShellPath:
		return s.shellPath, true
	case KeyServerName:
		return s.serverName, true
	default:
		return "", false
	}
}

// IsKey reports whether key is one of the overridable settings.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// NormalizePath trims value, ensures a leading "/" and strips one trailing
// "/". Blank input yields "".
func NormalizePath(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return strings.TrimSuffix(v, "/")
}

// ResolveURL turns a configured location into an absolute URL under baseURL.
// Absolute http(s) URLs pass through, blank values yield baseURL.
func ResolveURL(location, baseURL string) string {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return baseURL
	}
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return loc
	}
	return baseURL + urlpath.Join("", loc)
}
