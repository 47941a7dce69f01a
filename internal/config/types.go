// Package config provides configuration loading for herald using Viper.
// Configuration is loaded from YAML files with automatic environment
// variable binding.
//
// Environment variables use the HERALD_ prefix and underscore-separated keys:
//   - HERALD_MDNS_INTERFACE  -> mdns.interface
//   - HERALD_API_PORT        -> api.port
//   - HERALD_LOGGING_LEVEL   -> logging.level
package config

// MDNSConfig controls the multicast scope.
type MDNSConfig struct {
	Enabled   bool   `yaml:"enabled"   mapstructure:"enabled"`
	Interface string `yaml:"interface" mapstructure:"interface"` // empty = system default
}

// ServicesConfig controls where DNS-SD service definitions come from.
type ServicesConfig struct {
	// Directories are scanned for *.dnssd files; earlier entries shadow
	// later ones by basename.
	Directories []string `yaml:"directories" mapstructure:"directories"`
}

// DatabaseConfig locates the persistent service store.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging-related settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"             mapstructure:"level"`
	Structured       bool              `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string            `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"       mapstructure:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields"      mapstructure:"extra_fields"`
}

// APIConfig contains the management REST API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// Config is the complete daemon configuration.
type Config struct {
	// Hostname overrides the advertised mDNS hostname; empty means the
	// system hostname.
	Hostname string `yaml:"hostname" mapstructure:"hostname"`

	MDNS     MDNSConfig     `yaml:"mdns"     mapstructure:"mdns"`
	Services ServicesConfig `yaml:"services" mapstructure:"services"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Logging  LoggingConfig  `yaml:"logging"  mapstructure:"logging"`
	API      APIConfig      `yaml:"api"      mapstructure:"api"`
}
