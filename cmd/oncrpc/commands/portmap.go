package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/oncrpc/internal/logger"
	pmapserver "github.com/marmos91/oncrpc/internal/portmap"
	"github.com/marmos91/oncrpc/pkg/metrics"
	"github.com/marmos91/oncrpc/pkg/metrics/prometheus"
)

var portmapCmd = &cobra.Command{
	Use:   "portmap",
	Short: "Run a portmapper",
}

var (
	serveListen string
	servePort   int
)

var portmapServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve portmapper versions 2, 3 and 4 over TCP",
	Long: `Serve an in-memory portmapper (rpcbind) over TCP.

The portmapper registers itself and every entry listed under
portmap.registrations in the configuration. Local services may add and
remove registrations with SET and UNSET from the loopback interface.

Examples:
  # Serve on the well-known port (needs privileges)
  oncrpc portmap serve

  # Serve on an unprivileged port with debug logging
  oncrpc portmap serve --port 1111 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runPortmapServe,
}

func init() {
	portmapServeCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (default: all interfaces)")
	portmapServeCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default: portmap.port from config)")
	portmapCmd.AddCommand(portmapServeCmd)
}

func runPortmapServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Portmap.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := initTelemetry(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer shutdown()

	var m metrics.RPCServerMetrics
	if startMetrics(ctx, cfg) {
		m = prometheus.NewRPCServerMetrics()
		logger.Info("Metrics enabled", logger.KeyPort, cfg.Metrics.Port)
	}

	srv, registry := pmapserver.NewServer(pmapserver.ServerConfig{
		Address:     net.JoinHostPort(serveListen, strconv.Itoa(cfg.Portmap.Port)),
		IdleTimeout: cfg.Portmap.IdleTimeout,
		Metrics:     m,
	})
	if err := srv.Listen(); err != nil {
		return err
	}

	_, portStr, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		return fmt.Errorf("parse listen address: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("parse listen port: %w", err)
	}
	registry.RegisterSelf(uint16(port))
	if err := registry.Register(cfg.Portmap.RPCBs()); err != nil {
		srv.Stop()
		return err
	}

	logger.Info("Portmapper listening",
		logger.KeyAddress, srv.Addr(),
		"registrations", registry.Len(),
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, stopping portmapper")
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-time.After(cfg.ShutdownTimeout):
		return fmt.Errorf("portmapper did not stop within %s", cfg.ShutdownTimeout)
	}
	logger.Info("Portmapper stopped")
	return nil
}
