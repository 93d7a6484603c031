package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. RPC keys follow the OpenTelemetry rpc.* conventions where
// one exists.
const (
	AttrRPCSystem    = "rpc.system" // always "onc_rpc"
	AttrRPCXID       = "rpc.onc_rpc.xid"
	AttrRPCProgram   = "rpc.onc_rpc.program"
	AttrRPCVersion   = "rpc.onc_rpc.version"
	AttrRPCProcedure = "rpc.onc_rpc.procedure"
	AttrRPCStatus    = "rpc.onc_rpc.status"
	AttrRPCClientID  = "rpc.onc_rpc.client_id"

	AttrServerAddress = "server.address"
	AttrServerPort    = "server.port"
	AttrNetworkPeer   = "network.peer.address"

	AttrPortmapNetID = "portmap.netid"
	AttrPortmapUAddr = "portmap.uaddr"
)

// Span names.
const (
	SpanRPCCall        = "rpc.call"
	SpanRPCServe       = "rpc.serve"
	SpanPortmapDial    = "portmap.dial"
	SpanPortmapGetAddr = "portmap.getaddr"
	SpanPortmapDump    = "portmap.dump"
)

// RPCXID returns an attribute for RPC transaction ID
func RPCXID(xid uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCXID, int64(xid))
}

// RPCProgram returns an attribute for an RPC program number
func RPCProgram(prog uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCProgram, int64(prog))
}

// RPCVersion returns an attribute for an RPC program version
func RPCVersion(vers uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCVersion, int64(vers))
}

// RPCProcedure returns an attribute for an RPC procedure number
func RPCProcedure(proc uint32) attribute.KeyValue {
	return attribute.Int64(AttrRPCProcedure, int64(proc))
}

// RPCStatus returns an attribute for a reply status label
func RPCStatus(status string) attribute.KeyValue {
	return attribute.String(AttrRPCStatus, status)
}

// ServerAddress returns an attribute for the remote host
func ServerAddress(addr string) attribute.KeyValue {
	return attribute.String(AttrServerAddress, addr)
}

// ServerPort returns an attribute for the remote port
func ServerPort(port int) attribute.KeyValue {
	return attribute.Int(AttrServerPort, port)
}

// PortmapUAddr returns an attribute for a universal address
func PortmapUAddr(uaddr string) attribute.KeyValue {
	return attribute.String(AttrPortmapUAddr, uaddr)
}

// StartRPCSpan starts a client span for one call of prog/vers/proc.
func StartRPCSpan(ctx context.Context, name string, prog, vers, proc uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, 4+len(attrs))
	all = append(all,
		attribute.String(AttrRPCSystem, "onc_rpc"),
		RPCProgram(prog),
		RPCVersion(vers),
		RPCProcedure(proc),
	)
	all = append(all, attrs...)
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(all...))
}

// NetworkPeer returns an attribute for the remote end of a connection
func NetworkPeer(addr string) attribute.KeyValue {
	return attribute.String(AttrNetworkPeer, addr)
}

// StartServerSpan starts a server span for serving one call of prog/vers/proc.
func StartServerSpan(ctx context.Context, prog, vers, proc uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, 4+len(attrs))
	all = append(all,
		attribute.String(AttrRPCSystem, "onc_rpc"),
		RPCProgram(prog),
		RPCVersion(vers),
		RPCProcedure(proc),
	)
	all = append(all, attrs...)
	return StartSpan(ctx, SpanRPCServe, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(all...))
}
