package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// RPC Call
	// ========================================================================
	KeyXID        = "xid"
	KeyProgram    = "program"
	KeyVersion    = "version"
	KeyProcedure  = "procedure"
	KeyStatus     = "status"     // accept/reject status or "success"
	KeyNetID      = "netid"      // transport id: tcp, tcp6
	KeyUniversal  = "uaddr"      // universal address "h1.h2.h3.h4.p1.p2"
	KeyOwner      = "owner"      // rpcbind registration owner
	KeyFragments  = "fragments"  // fragments in a reassembled record
	KeyBytesSent  = "bytes_sent" // record payload bytes written
	KeyBytesRecvd = "bytes_recv" // record payload bytes read

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeyClientID     = "client_id"     // RPC client session id
	KeyConnectionID = "connection_id" // server-side connection id
	KeyAddress      = "address"       // peer host:port
	KeyPort         = "port"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyCount      = "count"
	KeyConfig     = "config"
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// XID returns a slog.Attr for an RPC transaction id
func XID(xid uint32) slog.Attr {
	return slog.Any(KeyXID, xid)
}

// Program returns a slog.Attr for an RPC program number
func Program(prog uint32) slog.Attr {
	return slog.Any(KeyProgram, prog)
}

// Version returns a slog.Attr for an RPC program version
func Version(vers uint32) slog.Attr {
	return slog.Any(KeyVersion, vers)
}

// Procedure returns a slog.Attr for an RPC procedure number
func Procedure(proc uint32) slog.Attr {
	return slog.Any(KeyProcedure, proc)
}

// Status returns a slog.Attr for a reply status
func Status(s string) slog.Attr {
	return slog.String(KeyStatus, s)
}

// Address returns a slog.Attr for a peer address
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}

// ClientID returns a slog.Attr for an RPC client session id
func ClientID(id string) slog.Attr {
	return slog.String(KeyClientID, id)
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty Attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
