package portmap

import (
	"time"

	"github.com/marmos91/oncrpc/internal/server"
	"github.com/marmos91/oncrpc/pkg/metrics"
)

// ServerConfig holds configuration for the portmapper server.
type ServerConfig struct {
	// Address is the TCP address to listen on (default ":111").
	Address string

	// Registry is the service registry used by procedure handlers.
	// A new empty registry is created when nil.
	Registry *Registry

	// IdleTimeout closes connections idle for this long.
	IdleTimeout time.Duration

	// Metrics receives request metrics. Nil disables collection.
	Metrics metrics.RPCServerMetrics
}

// NewServer creates a portmapper server. The returned registry is the one
// served, so callers can register programs before and while serving.
func NewServer(cfg ServerConfig) (*server.Server, *Registry) {
	if cfg.Address == "" {
		cfg.Address = ":111"
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}

	srv := server.NewServer(server.ServerConfig{
		Address:     cfg.Address,
		IdleTimeout: cfg.IdleTimeout,
		Metrics:     cfg.Metrics,
	}, NewProgram(NewHandler(cfg.Registry)))
	return srv, cfg.Registry
}
