package config

import (
	"strings"
	"time"

	"github.com/marmos91/oncrpc/internal/server"
	"github.com/marmos91/oncrpc/pkg/portmap"
	"github.com/marmos91/oncrpc/pkg/rpc"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyClientDefaults(&cfg.Client)
	applyPortmapDefaults(&cfg.Portmap)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.PortmapPort == 0 {
		cfg.PortmapPort = portmap.DefaultPort
	}
	if cfg.NetID == "" {
		cfg.NetID = portmap.NetIDTCP
	}
	if cfg.Owner == "" {
		cfg.Owner = portmap.DefaultOwner
	}
	if cfg.XID == 0 {
		cfg.XID = rpc.DefaultXID
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = rpc.DefaultBufferSize
	}
}

func applyPortmapDefaults(cfg *PortmapConfig) {
	if cfg.Port == 0 {
		cfg.Port = portmap.DefaultPort
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = server.DefaultIdleTimeout
	}
	for i := range cfg.Registrations {
		r := &cfg.Registrations[i]
		if r.NetID == "" {
			r.NetID = portmap.NetIDTCP
		}
		if r.Owner == "" {
			r.Owner = "superuser"
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
