package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/internal/cli/output"
	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/internal/telemetry"
	"github.com/marmos91/oncrpc/pkg/config"
	"github.com/marmos91/oncrpc/pkg/metrics"
)

// loadConfig loads the configuration (defaults when no file exists),
// applies the global flag overrides and initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, ok := logger.ParseLevel(logLevel); !ok {
			return nil, fmt.Errorf("invalid log level %q", logLevel)
		}
		cfg.Logging.Level = strings.ToUpper(logLevel)
	}
	if portmapPort != 0 {
		cfg.Client.PortmapPort = portmapPort
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLogger initializes the structured logger from cfg.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initTelemetry starts tracing and, when profiling is set, Pyroscope.
// The returned function flushes both.
func initTelemetry(ctx context.Context, cfg *config.Config, profiling bool) (func(), error) {
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "oncrpc",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown := func() error { return nil }
	if profiling {
		profilingShutdown, err = telemetry.InitProfiling(telemetry.ProfilingConfig{
			Enabled:        cfg.Telemetry.Profiling.Enabled,
			ServiceName:    "oncrpc",
			ServiceVersion: Version,
			Endpoint:       cfg.Telemetry.Profiling.Endpoint,
			ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		})
		if err != nil {
			_ = telemetryShutdown(ctx)
			return nil, fmt.Errorf("failed to initialize profiling: %w", err)
		}
	}

	return func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
		// ctx may already be cancelled by a signal.
		if err := telemetryShutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}, nil
}

// startMetrics enables collection and serves /metrics until ctx is done.
// It reports whether metrics are enabled.
func startMetrics(ctx context.Context, cfg *config.Config) bool {
	if !cfg.Metrics.Enabled {
		return false
	}
	metrics.InitRegistry()

	srv := metrics.NewServer(metrics.ServerConfig{Address: fmt.Sprintf(":%d", cfg.Metrics.Port)})
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Error("Metrics server error", logger.Err(err))
		}
	}()
	return true
}

func newPrinter(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format), nil
}

// parseUint32 accepts decimal, 0x-prefixed hex and 0-prefixed octal.
func parseUint32(name, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return uint32(v), nil
}

// parseTarget parses the HOST PROG VERS arguments shared by client commands.
func parseTarget(args []string) (host string, prog, vers uint32, err error) {
	host = args[0]
	if prog, err = parseUint32("program", args[1]); err != nil {
		return "", 0, 0, err
	}
	if vers, err = parseUint32("version", args[2]); err != nil {
		return "", 0, 0, err
	}
	return host, prog, vers, nil
}

func u32(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

func i32(v int32) string { return strconv.FormatInt(int64(v), 10) }
