package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oncrpc/pkg/metrics"
)

func TestRPCMetrics(t *testing.T) {
	metrics.InitRegistry()

	t.Run("Client", func(t *testing.T) {
		m := NewRPCClientMetrics()
		require.NotNil(t, m)
		cm := m.(*rpcClientMetrics)

		m.RecordCall(100000, 4, 3, "success", 2*time.Millisecond)
		m.RecordCall(100000, 4, 3, "success", 3*time.Millisecond)
		m.RecordCall(100000, 4, 9, "PROC_UNAVAIL", time.Millisecond)
		m.RecordBytes(100000, metrics.DirectionSent, 60)
		m.RecordBytes(100000, metrics.DirectionSent, 40)
		m.RecordReplyFragments(100000, 2)
		m.RecordClientBroken(100000)

		assert.Equal(t, 2.0, testutil.ToFloat64(cm.calls.WithLabelValues("100000", "4", "3", "success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(cm.calls.WithLabelValues("100000", "4", "9", "PROC_UNAVAIL")))
		assert.Equal(t, 100.0, testutil.ToFloat64(cm.bytes.WithLabelValues("100000", metrics.DirectionSent)))
		assert.Equal(t, 1.0, testutil.ToFloat64(cm.broken.WithLabelValues("100000")))
		assert.Equal(t, 1, testutil.CollectAndCount(cm.fragments))
	})

	t.Run("Server", func(t *testing.T) {
		m := NewRPCServerMetrics()
		require.NotNil(t, m)
		sm := m.(*rpcServerMetrics)

		m.RecordConnectionAccepted()
		m.RecordConnectionAccepted()
		m.RecordConnectionClosed()
		m.RecordRequest(100000, 4, 3, "success", time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(sm.accepted))
		assert.Equal(t, 1.0, testutil.ToFloat64(sm.connections))
		assert.Equal(t, 1.0, testutil.ToFloat64(sm.requests.WithLabelValues("100000", "4", "3", "success")))
	})
}
