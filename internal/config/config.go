// Package config provides configuration loading and validation for herald.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/herald/main.go)
//  2. Environment variables (HERALD_* prefix)
//  3. YAML config file (if specified with --config)
//  4. Hardcoded defaults
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ResolveConfigPath picks the config file path: the flag wins, then the
// HERALD_CONFIG environment variable, then none.
func ResolveConfigPath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("HERALD_CONFIG"))
}

// initConfig sets up the config loader with defaults, env binding, and
// config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variable binding: HERALD_API_PORT -> api.port
	v.SetEnvPrefix("HERALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("hostname", "")

	// Multicast scope defaults
	v.SetDefault("mdns.enabled", true)
	v.SetDefault("mdns.interface", "")

	// Service definition directories, most specific first
	v.SetDefault("services.directories", []string{
		"/etc/herald/dnssd",
		"/run/herald/dnssd",
		"/usr/lib/herald/dnssd",
	})

	// Persistence
	v.SetDefault("database.path", "herald.db")

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("logging.extra_fields", map[string]string{})

	// Management API defaults
	// Default to disabled and bound to localhost for safety.
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8053)
	v.SetDefault("api.api_key", "")
}

// Load loads and validates the configuration.
func Load(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalizeConfig validates and normalizes loaded values.
func normalizeConfig(cfg *Config) error {
	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", cfg.API.Port)
	}
	if cfg.API.Enabled && cfg.API.Host == "" {
		return errors.New("api.enabled requires api.host")
	}

	switch strings.ToUpper(strings.TrimSpace(cfg.Logging.Level)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
	default:
		return fmt.Errorf("unknown logging.level: %q", cfg.Logging.Level)
	}

	if cfg.Hostname != "" {
		cfg.Hostname = strings.ToLower(strings.TrimSuffix(cfg.Hostname, "."))
	}

	if len(cfg.Services.Directories) == 0 {
		return errors.New("services.directories must not be empty")
	}
	return nil
}
