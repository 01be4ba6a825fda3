// Package config loads the softioc host configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (SOFTIOC_*, e.g. SOFTIOC_LOGGING_LEVEL=DEBUG)
//  2. Configuration file (YAML)
//  3. Defaults (ApplyDefaults)
//
// Engine options under server.options are passed to the server unchanged
// and checked with the engine's own parser during validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete host configuration.
type Config struct {
	// Logging controls operational log output.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server holds the PV database and engine options.
	Server ServerConfig `mapstructure:"server"`

	// Autosave selects the value persistence backend.
	Autosave AutosaveConfig `mapstructure:"autosave"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Gateway configures the websocket bridge.
	Gateway GatewayConfig `mapstructure:"gateway"`

	// ProtocolLog configures the CBOR protocol capture file.
	ProtocolLog ProtocolLogConfig `mapstructure:"protocol_log"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level: DEBUG, INFO, WARN, ERROR (case-insensitive,
	// normalized to uppercase by ApplyDefaults).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`

	// Format is text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig configures the PV server.
type ServerConfig struct {
	// Database is the path of the YAML PV database.
	Database string `mapstructure:"database"`

	// Options are engine configuration options (server_port, beacon_period, ...).
	Options map[string]string `mapstructure:"options"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AutosaveConfig configures value persistence.
type AutosaveConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Period between saves.
	Period time.Duration `mapstructure:"period" validate:"gt=0"`

	// Backend is file or badger.
	Backend string `mapstructure:"backend" validate:"required,oneof=file badger"`

	// File holds file backend options (path).
	File map[string]any `mapstructure:"file"`

	// Badger holds badger backend options (path, in_memory, sync_writes).
	Badger map[string]any `mapstructure:"badger"`
}

// BackendOptions returns the option map of the selected backend.
func (c AutosaveConfig) BackendOptions() map[string]any {
	if c.Backend == "badger" {
		return c.Badger
	}
	return c.File
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// GatewayConfig configures the websocket bridge.
type GatewayConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Address is the HTTP listen address.
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
}

// ProtocolLogConfig configures protocol capture.
type ProtocolLogConfig struct {
	// Path of the capture file. Empty disables capture.
	Path string `mapstructure:"path"`
}

// Load loads configuration from file, environment and defaults, then
// validates it. An empty configPath searches the default location; a
// missing file there is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SOFTIOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"server.database", "server.shutdown_timeout",
		"autosave.enabled", "autosave.period", "autosave.backend",
		"metrics.enabled", "metrics.address", "metrics.port",
		"gateway.enabled", "gateway.address",
		"protocol_log.path",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/softioc, ~/.config/softioc, or ".".
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "softioc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "softioc")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
