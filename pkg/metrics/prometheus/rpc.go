// Package prometheus implements the metrics interfaces on top of the global
// Prometheus registry.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/oncrpc/pkg/metrics"
)

// durationBuckets covers loopback calls up to slow WAN round trips.
var durationBuckets = []float64{
	0.1, // 100us - loopback
	0.5,
	1, // 1ms
	5,
	10,
	50,
	100,
	500,
	1000, // 1s
	5000,
}

// rpcClientMetrics is the Prometheus implementation of metrics.RPCClientMetrics.
type rpcClientMetrics struct {
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	bytes     *prometheus.CounterVec
	fragments *prometheus.HistogramVec
	broken    *prometheus.CounterVec
}

// NewRPCClientMetrics creates Prometheus-backed client metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called). The
// constructor registers its collectors, so call it once per process and
// share the result between clients.
func NewRPCClientMetrics() metrics.RPCClientMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	factory := promauto.With(metrics.GetRegistry())

	return &rpcClientMetrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncrpc_client_calls_total",
				Help: "Total number of RPC calls by program, version, procedure and reply status",
			},
			[]string{"program", "version", "procedure", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oncrpc_client_call_duration_milliseconds",
				Help:    "Duration of RPC calls in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"program", "procedure"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncrpc_client_bytes_total",
				Help: "Record payload bytes exchanged by RPC clients",
			},
			[]string{"program", "direction"},
		),
		fragments: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oncrpc_client_reply_fragments",
				Help:    "Number of record-marking fragments per reply",
				Buckets: []float64{1, 2, 4, 8, 16, 64},
			},
			[]string{"program"},
		),
		broken: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncrpc_client_broken_total",
				Help: "RPC clients that became unusable after a transport or decoding failure",
			},
			[]string{"program"},
		),
	}
}

func (m *rpcClientMetrics) RecordCall(program, version, procedure uint32, status string, duration time.Duration) {
	prog := u32(program)
	proc := u32(procedure)
	m.calls.WithLabelValues(prog, u32(version), proc, status).Inc()
	m.duration.WithLabelValues(prog, proc).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *rpcClientMetrics) RecordBytes(program uint32, direction string, bytes int64) {
	m.bytes.WithLabelValues(u32(program), direction).Add(float64(bytes))
}

func (m *rpcClientMetrics) RecordReplyFragments(program uint32, fragments int) {
	m.fragments.WithLabelValues(u32(program)).Observe(float64(fragments))
}

func (m *rpcClientMetrics) RecordClientBroken(program uint32) {
	m.broken.WithLabelValues(u32(program)).Inc()
}

// rpcServerMetrics is the Prometheus implementation of metrics.RPCServerMetrics.
type rpcServerMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	accepted    prometheus.Counter
	connections prometheus.Gauge
}

// NewRPCServerMetrics creates Prometheus-backed server metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRPCServerMetrics() metrics.RPCServerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	factory := promauto.With(metrics.GetRegistry())

	return &rpcServerMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oncrpc_server_requests_total",
				Help: "Total number of RPC requests served by program, version, procedure and reply status",
			},
			[]string{"program", "version", "procedure", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oncrpc_server_request_duration_milliseconds",
				Help:    "Time spent in RPC handlers in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"program", "procedure"},
		),
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "oncrpc_server_connections_accepted_total",
			Help: "Total number of accepted TCP connections",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "oncrpc_server_active_connections",
			Help: "Number of open TCP connections",
		}),
	}
}

func (m *rpcServerMetrics) RecordRequest(program, version, procedure uint32, status string, duration time.Duration) {
	prog := u32(program)
	proc := u32(procedure)
	m.requests.WithLabelValues(prog, u32(version), proc, status).Inc()
	m.duration.WithLabelValues(prog, proc).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *rpcServerMetrics) RecordConnectionAccepted() {
	m.accepted.Inc()
	m.connections.Inc()
}

func (m *rpcServerMetrics) RecordConnectionClosed() {
	m.connections.Dec()
}

func u32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
