package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
	"github.com/volview-xnat/volviewd/internal/domain/viewer"
)

func TestAppConfig_SetDefaults(t *testing.T) {
	var cfg AppConfig
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:8080")
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.Server.LogLevel, "info")
	}
	if cfg.Server.ReadHeaderTimeout != "10s" {
		t.Errorf("ReadHeaderTimeout = %q, want %q", cfg.Server.ReadHeaderTimeout, "10s")
	}
	if cfg.VolView.Defaults() != viewer.BuiltinDefaults() {
		t.Errorf("VolView defaults = %+v, want built-in defaults", cfg.VolView)
	}
	if cfg.State.Path != "./state.json" {
		t.Errorf("State.Path = %q", cfg.State.Path)
	}
	if !cfg.State.Watch {
		t.Error("State.Watch should default to true")
	}
	if cfg.Sessions.Backend != SessionBackendMemory {
		t.Errorf("Sessions.Backend = %q, want %q", cfg.Sessions.Backend, SessionBackendMemory)
	}
	if cfg.Audit.Enabled || cfg.Audit.RetentionDays != 30 || cfg.Audit.MaxFileSizeMB != 50 {
		t.Errorf("Audit defaults = %+v", cfg.Audit)
	}
	if rl := cfg.Server.RateLimit; rl.Enabled || rl.Rate != 120 || rl.Burst != 120 || rl.PeriodDuration() != time.Minute {
		t.Errorf("RateLimit defaults = %+v", rl)
	}
}

func TestRateLimitConfig_PeriodDuration(t *testing.T) {
	for period, want := range map[string]time.Duration{"30s": 30 * time.Second, "": time.Minute, "bogus": time.Minute, "-1s": time.Minute} {
		if got := (RateLimitConfig{Period: period}).PeriodDuration(); got != want {
			t.Errorf("PeriodDuration(%q) = %v, want %v", period, got, want)
		}
	}
}

func TestAppConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	cfg := AppConfig{
		Server:   ServerConfig{HTTPAddr: ":9090", ContextPath: "/xnat"},
		VolView:  VolViewConfig{ServerName: "Site PACS"},
		Sessions: SessionsConfig{Backend: SessionBackendSQLite, SQLitePath: "/var/lib/volviewd/sessions.db"},
	}
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr was overwritten: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.ContextPath != "/xnat" {
		t.Errorf("ContextPath was overwritten: got %q", cfg.Server.ContextPath)
	}
	if cfg.VolView.ServerName != "Site PACS" {
		t.Errorf("ServerName was overwritten: got %q", cfg.VolView.ServerName)
	}
	if cfg.VolView.ShellPath != viewer.DefaultShellPath {
		t.Errorf("ShellPath = %q, want default", cfg.VolView.ShellPath)
	}
	if cfg.Sessions.Backend != SessionBackendSQLite {
		t.Errorf("Backend was overwritten: got %q", cfg.Sessions.Backend)
	}
}

func TestAppConfig_SetDevDefaults(t *testing.T) {
	cfg := AppConfig{DevMode: true}
	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if len(cfg.Auth.Identities) != 1 || cfg.Auth.Identities[0].Roles[0] != "admin" {
		t.Fatalf("dev identity = %+v", cfg.Auth.Identities)
	}
	if len(cfg.Auth.APIKeys) != 1 {
		t.Fatalf("dev api keys = %+v", cfg.Auth.APIKeys)
	}
	if ok, err := auth.VerifyKey(DevAPIKey, cfg.Auth.APIKeys[0].KeyHash); err != nil || !ok {
		t.Errorf("dev key hash does not verify %q: ok=%v err=%v", DevAPIKey, ok, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("dev config should validate: %v", err)
	}
}

func TestAppConfig_SetDevDefaults_NoopWithoutDevMode(t *testing.T) {
	var cfg AppConfig
	cfg.SetDevDefaults()

	if len(cfg.Auth.Identities) != 0 || cfg.Server.LogLevel != "" {
		t.Errorf("SetDevDefaults changed a non-dev config: %+v", cfg)
	}
}

func TestAppConfig_ReadHeaderTimeoutDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"5s":  5 * time.Second,
		"1m":  time.Minute,
		"":    10 * time.Second,
		"bad": 10 * time.Second,
		"-1s": 10 * time.Second,
	}
	for in, want := range tests {
		cfg := AppConfig{Server: ServerConfig{ReadHeaderTimeout: in}}
		if got := cfg.ReadHeaderTimeoutDuration(); got != want {
			t.Errorf("ReadHeaderTimeoutDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	if got := findConfigFileInPaths([]string{t.TempDir()}); got != "" {
		t.Errorf("findConfigFileInPaths() = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volviewd.yml")
	if err := os.WriteFile(path, []byte("server: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFileInPaths([]string{dir}); got != path {
		t.Errorf("findConfigFileInPaths() = %q, want %q", got, path)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "volviewd"), []byte("binary"), 0700); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths() = %q, want empty (binary must not match)", got)
	}
}

func TestFindConfigFileInPaths_PrefersYAMLOverYMLAndFirstDir(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	for _, p := range []string{
		filepath.Join(first, "volviewd.yml"),
		filepath.Join(first, "volviewd.yaml"),
		filepath.Join(second, "volviewd.yaml"),
	} {
		if err := os.WriteFile(p, []byte("{}\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	want := filepath.Join(first, "volviewd.yaml")
	if got := findConfigFileInPaths([]string{first, second}); got != want {
		t.Errorf("findConfigFileInPaths() = %q, want %q", got, want)
	}
}
