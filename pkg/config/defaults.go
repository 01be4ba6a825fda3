package config

import (
	"strings"
	"time"

	"github.com/softioc/softioc-go/pkg/autosave"
)

// Defaults.
const (
	DefaultShutdownTimeout = 5 * time.Second
	DefaultAutosaveFile    = "softioc-autosave.json"
	DefaultMetricsPort     = 9090
	DefaultGatewayAddress  = "127.0.0.1:8080"
)

// ApplyDefaults fills unset fields. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.Options == nil {
		cfg.Server.Options = make(map[string]string)
	}

	if cfg.Autosave.Period == 0 {
		cfg.Autosave.Period = autosave.DefaultPeriod
	}
	if cfg.Autosave.Backend == "" {
		cfg.Autosave.Backend = "file"
	}
	if cfg.Autosave.Backend == "file" {
		if cfg.Autosave.File == nil {
			cfg.Autosave.File = make(map[string]any)
		}
		if _, ok := cfg.Autosave.File["path"]; !ok {
			cfg.Autosave.File["path"] = DefaultAutosaveFile
		}
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
	if cfg.Gateway.Address == "" {
		cfg.Gateway.Address = DefaultGatewayAddress
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}
