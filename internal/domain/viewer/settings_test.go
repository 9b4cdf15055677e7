package viewer

import "testing"

func TestNewSettings_Defaults(t *testing.T) {
	t.Parallel()

	s := NewSettings(BuiltinDefaults(), nil)

	if s.DicomwebBasePath() != "/xapi/dicomweb/projects" {
		t.Errorf("DicomwebBasePath() = %q, want %q", s.DicomwebBasePath(), "/xapi/dicomweb/projects")
	}
	if s.ViewerEntryPoint() != "/volview/app/index.html" {
		t.Errorf("ViewerEntryPoint() = %q", s.ViewerEntryPoint())
	}
	if s.ShellPath() != "/plugin-resources/xnat-volview/index.html" {
		t.Errorf("ShellPath() = %q", s.ShellPath())
	}
	if s.ServerName() != "XNAT DICOMweb" {
		t.Errorf("ServerName() = %q", s.ServerName())
	}
	for _, k := range Keys {
		if s.Overridden(k) {
			t.Errorf("Overridden(%q) = true with no site store", k)
		}
	}
}

func TestNewSettings_SiteStoreOverrides(t *testing.T) {
	t.Parallel()

	prefs := Preferences{
		KeyDicomwebBasePath: " dicomweb/ ",
		KeyServerName:       "  Research PACS ",
		KeyShellPath:        "   ",
	}
	s := NewSettings(BuiltinDefaults(), prefs)

	if s.DicomwebBasePath() != "/dicomweb" {
		t.Errorf("DicomwebBasePath() = %q, want %q", s.DicomwebBasePath(), "/dicomweb")
	}
	if s.ServerName() != "Research PACS" {
		t.Errorf("ServerName() = %q, want %q", s.ServerName(), "Research PACS")
	}
	if s.ShellPath() != DefaultShellPath {
		t.Errorf("blank override should fall back: ShellPath() = %q", s.ShellPath())
	}
	if !s.Overridden(KeyServerName) || s.Overridden(KeyShellPath) {
		t.Error("Overridden() does not reflect non-blank site values")
	}
}

func TestSettings_ProjectDicomwebPath(t *testing.T) {
	t.Parallel()

	s := NewSettings(BuiltinDefaults(), nil)
	if got := s.ProjectDicomwebPath("P1"); got != "/xapi/dicomweb/projects/P1" {
		t.Errorf("ProjectDicomwebPath() = %q", got)
	}

	empty := NewSettings(Defaults{}, nil)
	if got := empty.ProjectDicomwebPath("P1"); got != "/P1" {
		t.Errorf("ProjectDicomwebPath() with empty base = %q, want %q", got, "/P1")
	}
}

func TestSettings_Value(t *testing.T) {
	t.Parallel()

	s := NewSettings(BuiltinDefaults(), Preferences{KeyServerName: "X"})
	if v, ok := s.Value(KeyServerName); !ok || v != "X" {
		t.Errorf("Value(server-name) = (%q, %v)", v, ok)
	}
	if _, ok := s.Value("volview.unknown"); ok {
		t.Error("Value() of unknown key should report false")
	}
	if !IsKey(KeyShellPath) || IsKey("other") {
		t.Error("IsKey() mismatch")
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                         "",
		"   ":                      "",
		"/xapi/dicomweb/projects":  "/xapi/dicomweb/projects",
		"xapi/dicomweb/projects/":  "/xapi/dicomweb/projects",
		" /xapi/dicomweb/projects": "/xapi/dicomweb/projects",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base := "https://xnat.example.org/xnat"
	tests := []struct {
		location string
		want     string
	}{
		{"", base},
		{"  ", base},
		{"/volview/app/index.html", base + "/volview/app/index.html"},
		{"volview/app/index.html", base + "/volview/app/index.html"},
		{"https://cdn.example.org/volview/", "https://cdn.example.org/volview/"},
		{"http://viewer.local/index.html", "http://viewer.local/index.html"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.location, base); got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}
