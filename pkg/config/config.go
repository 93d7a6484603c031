package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the oncrpc tool configuration.
//
// It covers the ambient settings shared by every command (logging,
// tracing, profiling, metrics), the defaults used by the RPC client
// commands, and the in-process portmapper served by "oncrpc portmap serve".
//
// Flags override ONCRPC_* environment variables, which override the YAML
// file, which overrides the built-in defaults.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry exports call spans over OTLP
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Client holds defaults for commands that talk to a remote portmapper
	Client ClientConfig `mapstructure:"client" yaml:"client"`

	// Portmap configures the portmapper server
	Portmap PortmapConfig `mapstructure:"portmap" yaml:"portmap"`

	// ShutdownTimeout bounds graceful shutdown of long-running commands
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig selects the log level, encoding and destination.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN or ERROR, in any case. It is stored
	// uppercased.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is "text" or "json"
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig configures tracing. When enabled, every RPC call and
// portmapper lookup produces a span sent to an OTLP collector.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint of the collector as host:port (default localhost:4317)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of calls traced, 1.0 when unset
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig configures Pyroscope. Only bench and portmap serve
// start the profiler.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes lists pyroscope profile names such as cpu, inuse_space
	// or goroutines. Unknown names are ignored.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures Prometheus collection and its HTTP endpoint.
// Nothing is collected while Enabled is false.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port serves /metrics and /health (default 9090)
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ClientConfig holds the defaults applied to every client session.
type ClientConfig struct {
	// PortmapPort is the port of the remote portmapper
	// Default: 111
	PortmapPort int `mapstructure:"portmap_port" validate:"min=1,max=65535" yaml:"portmap_port"`

	// NetID is the transport requested in GETADDR
	// Default: "tcp"
	NetID string `mapstructure:"netid" validate:"required,oneof=tcp tcp6" yaml:"netid"`

	// Owner is the owner string sent in GETADDR
	// Default: "rpclib"
	Owner string `mapstructure:"owner" yaml:"owner"`

	// XID is the transaction id stamped on every call
	// Default: 123456
	XID uint32 `mapstructure:"xid" yaml:"xid"`

	// DialTimeout bounds the portmapper lookup and the connection to the server
	// Default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0" yaml:"dial_timeout"`

	// CallTimeout bounds a single call. Zero means no deadline.
	// Default: 30s
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gte=0" yaml:"call_timeout"`

	// BufferSize is the size of the connection read and write buffers
	// Default: 256
	BufferSize int `mapstructure:"buffer_size" validate:"gte=16" yaml:"buffer_size"`
}

// PortmapConfig configures the portmapper server.
type PortmapConfig struct {
	// Port is the TCP port the portmapper listens on
	// Default: 111
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// IdleTimeout closes connections that send no call for this long
	// Default: 2m
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0" yaml:"idle_timeout"`

	// Registrations are added to the registry at startup
	Registrations []Registration `mapstructure:"registrations" validate:"dive" yaml:"registrations,omitempty"`
}

// Registration is a static program registration.
type Registration struct {
	Program uint32 `mapstructure:"program" validate:"required" yaml:"program"`
	Version uint32 `mapstructure:"version" yaml:"version"`

	// NetID defaults to "tcp"
	NetID string `mapstructure:"netid" yaml:"netid"`

	// Addr is a universal address, e.g. "0.0.0.0.8.1" for port 2049
	Addr string `mapstructure:"addr" validate:"required" yaml:"addr"`

	// Owner defaults to "superuser"
	Owner string `mapstructure:"owner" yaml:"owner,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ONCRPC_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath uses the default location. A missing file is not an
// error; the defaults are returned instead.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks that the config file exists and explains how to create one if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  oncrpc config init\n\n"+
				"Or specify a custom config file:\n"+
				"  oncrpc <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  oncrpc config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: ONCRPC_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("ONCRPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration, so config files can use "30s", "5m" or "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "oncrpc")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "oncrpc")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
