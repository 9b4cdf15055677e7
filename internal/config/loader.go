package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// configBaseName is the file name searched for, without extension.
const configBaseName = "volviewd"

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for volviewd.yaml/.yml in standard locations.
// The search requires an explicit YAML extension so the binary itself, which
// shares the base name, is never picked up.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig then returns ConfigFileNotFoundError, which callers
		// treat as "env vars only".
		viper.SetConfigName(configBaseName)
		viper.SetConfigType("yaml")
	}

	// VOLVIEWD_SERVER_HTTP_ADDR overrides server.http_addr.
	viper.SetEnvPrefix("VOLVIEWD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".volviewd"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "volviewd"))
		}
	} else {
		paths = append(paths, "/etc/volviewd")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first volviewd.yaml or .yml found in
// paths, or "".
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configBaseName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds the scalar config keys so they can be overridden
// from the environment. auth.identities and auth.api_keys are lists and are
// only configurable from the file.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.context_path")
	_ = viper.BindEnv("server.read_header_timeout")
	_ = viper.BindEnv("server.tls_cert_file")
	_ = viper.BindEnv("server.tls_key_file")
	_ = viper.BindEnv("server.trace")
	_ = viper.BindEnv("server.rate_limit.enabled")
	_ = viper.BindEnv("server.rate_limit.rate")
	_ = viper.BindEnv("server.rate_limit.burst")
	_ = viper.BindEnv("server.rate_limit.period")

	_ = viper.BindEnv("volview.dicomweb_base_path")
	_ = viper.BindEnv("volview.viewer_entry_point")
	_ = viper.BindEnv("volview.shell_path")
	_ = viper.BindEnv("volview.server_name")

	_ = viper.BindEnv("state.path")
	_ = viper.BindEnv("state.watch")

	_ = viper.BindEnv("sessions.backend")
	_ = viper.BindEnv("sessions.sqlite_path")

	_ = viper.BindEnv("audit.enabled")
	_ = viper.BindEnv("audit.dir")
	_ = viper.BindEnv("audit.retention_days")
	_ = viper.BindEnv("audit.max_file_size_mb")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, applies dev defaults and validates.
func LoadConfig() (*AppConfig, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT apply dev defaults or validate.
// Use this when CLI flags may override DevMode before validation.
func LoadConfigRaw() (*AppConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
