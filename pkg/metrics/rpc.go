package metrics

import (
	"time"
)

// Traffic directions for RecordBytes.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// RPCClientMetrics provides observability for RPC client calls.
//
// Pass nil to disable metrics collection with zero overhead.
type RPCClientMetrics interface {
	// RecordCall records a completed call.
	//
	// Parameters:
	//   - program, version, procedure: the called procedure
	//   - status: "success", an accept/reject status name (e.g., "PROC_UNAVAIL"),
	//     or "error" for transport and decoding failures
	//   - duration: time from send to the end of the reply
	RecordCall(program, version, procedure uint32, status string, duration time.Duration)

	// RecordBytes records record payload bytes for one call.
	RecordBytes(program uint32, direction string, bytes int64)

	// RecordReplyFragments records how many fragments a reply record used.
	RecordReplyFragments(program uint32, fragments int)

	// RecordClientBroken counts clients that became unusable.
	RecordClientBroken(program uint32)
}

// RPCServerMetrics provides observability for the RPC server runtime.
//
// Pass nil to disable metrics collection with zero overhead.
type RPCServerMetrics interface {
	// RecordRequest records a dispatched call and the status it was
	// answered with.
	RecordRequest(program, version, procedure uint32, status string, duration time.Duration)

	// RecordConnectionAccepted increments the accepted connections counter
	// and the active connections gauge.
	RecordConnectionAccepted()

	// RecordConnectionClosed decrements the active connections gauge.
	RecordConnectionClosed()
}
