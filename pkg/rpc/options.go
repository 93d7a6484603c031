package rpc

import (
	"github.com/marmos91/oncrpc/pkg/metrics"
)

// DefaultBufferSize is the size of the read and write buffers wrapped
// around the connection.
const DefaultBufferSize = 256

// minBufferSize is the smallest size bufio accepts.
const minBufferSize = 16

type clientOptions struct {
	xid        uint32
	bufferSize int
	metrics    metrics.RPCClientMetrics
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		xid:        DefaultXID,
		bufferSize: DefaultBufferSize,
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithXID overrides the transaction id stamped on every call.
func WithXID(xid uint32) Option {
	return func(o *clientOptions) { o.xid = xid }
}

// WithBufferSize sets the connection read and write buffer size.
func WithBufferSize(n int) Option {
	return func(o *clientOptions) {
		if n < minBufferSize {
			n = minBufferSize
		}
		o.bufferSize = n
	}
}

// WithMetrics reports calls to m. A nil m disables collection.
func WithMetrics(m metrics.RPCClientMetrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}
