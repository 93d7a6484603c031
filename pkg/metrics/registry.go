// Package metrics defines the observability hooks of the RPC client and
// server, and owns the Prometheus registry they report into.
//
// Every hook is optional: components accept a nil metrics value and skip
// collection entirely. Concrete implementations live in the prometheus
// subpackage and return nil until InitRegistry has been called.
//
// Usage:
//
//	metrics.InitRegistry()
//	m := prometheus.NewRPCClientMetrics()
//	client := rpc.NewClient(conn, prog, vers, rpc.WithMetrics(m))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry together with the
// Go runtime and process collectors. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true once InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
