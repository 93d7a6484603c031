package portmap

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/internal/telemetry"
	"github.com/marmos91/oncrpc/pkg/rpc"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

// Client is a session with the rpcbind version 4 service of one host.
type Client struct {
	rpc    *rpc.Client
	remote netip.AddrPort
	opts   options
}

// DialPortmapper connects to the portmapper on host.
func DialPortmapper(ctx context.Context, host string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	addr := net.JoinHostPort(host, strconv.Itoa(o.port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial portmapper %s: %w", addr, err)
	}

	remote := conn.RemoteAddr().(*net.TCPAddr).AddrPort()
	return &Client{
		rpc:    rpc.NewClient(conn, Program, Version4, o.clientOpts...),
		remote: netip.AddrPortFrom(remote.Addr().Unmap(), remote.Port()),
		opts:   o,
	}, nil
}

// RemoteAddr returns the portmapper socket address.
func (c *Client) RemoteAddr() netip.AddrPort { return c.remote }

// Close closes the portmapper connection.
func (c *Client) Close() error { return c.rpc.Close() }

// Null pings the portmapper.
func (c *Client) Null(ctx context.Context) error {
	return c.rpc.Call(ctx, ProcNull, nil, &xdr.Void{})
}

// GetAddr asks for the universal address of prog/vers. An empty string
// means the program is not registered.
//
// The request carries the portmapper's own universal address, the
// configured netid and the configured owner.
func (c *Client) GetAddr(ctx context.Context, prog, vers uint32) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPortmapGetAddr, trace.WithAttributes(
		telemetry.RPCProgram(prog),
		telemetry.RPCVersion(vers),
		attribute.String(telemetry.AttrPortmapNetID, c.opts.netID),
	))
	defer span.End()

	args := &RPCB{
		Program: prog,
		Version: vers,
		NetID:   c.opts.netID,
		Addr:    FormatUniversalAddr(c.remote),
		Owner:   c.opts.owner,
	}

	var uaddr xdr.String
	if err := c.rpc.Call(ctx, ProcGetAddr, args, &uaddr); err != nil {
		telemetry.RecordError(ctx, err)
		return "", fmt.Errorf("GETADDR: %w", err)
	}
	span.SetAttributes(telemetry.PortmapUAddr(string(uaddr)))
	return string(uaddr), nil
}

// Set registers b. It reports false when a registration for the same
// program, version and netid already exists.
func (c *Client) Set(ctx context.Context, b RPCB) (bool, error) {
	var ok xdr.Bool
	if err := c.rpc.Call(ctx, ProcSet, &b, &ok); err != nil {
		return false, fmt.Errorf("SET: %w", err)
	}
	return bool(ok), nil
}

// Unset removes the registrations matching b's program and version, for
// b.NetID or for every netid when it is empty.
func (c *Client) Unset(ctx context.Context, b RPCB) (bool, error) {
	var ok xdr.Bool
	if err := c.rpc.Call(ctx, ProcUnset, &b, &ok); err != nil {
		return false, fmt.Errorf("UNSET: %w", err)
	}
	return bool(ok), nil
}

// Dump lists every registration.
func (c *Client) Dump(ctx context.Context) ([]RPCB, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPortmapDump)
	defer span.End()

	var list RPCBList
	if err := c.rpc.Call(ctx, ProcDump, nil, &list); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("DUMP: %w", err)
	}
	return list, nil
}

// GetTime returns the portmapper host's clock.
func (c *Client) GetTime(ctx context.Context) (time.Time, error) {
	var secs xdr.Uint32
	if err := c.rpc.Call(ctx, ProcGetTime, nil, &secs); err != nil {
		return time.Time{}, fmt.Errorf("GETTIME: %w", err)
	}
	return time.Unix(int64(secs), 0), nil
}

// Resolve asks the portmapper on host where prog/vers listens.
//
// It returns ErrServerUnavailable when the program is not registered. A
// registration with an unspecified IP (0.0.0.0 or ::) resolves to the
// portmapper's own IP.
func Resolve(ctx context.Context, host string, prog, vers uint32, opts ...Option) (netip.AddrPort, error) {
	pm, err := DialPortmapper(ctx, host, opts...)
	if err != nil {
		return netip.AddrPort{}, err
	}
	defer func() { _ = pm.Close() }()

	uaddr, err := pm.GetAddr(ctx, prog, vers)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if uaddr == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: program %d version %d on %s", ErrServerUnavailable, prog, vers, host)
	}

	target, err := ParseUniversalAddr(uaddr)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if target.Addr().IsUnspecified() {
		target = netip.AddrPortFrom(pm.RemoteAddr().Addr(), target.Port())
	}
	return target, nil
}

// Dial locates prog/vers through the portmapper on host and returns a
// client connected to it.
//
// The portmapper connection is only used for the lookup and is closed
// before Dial returns.
func Dial(ctx context.Context, host string, prog, vers uint32, opts ...Option) (*rpc.Client, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPortmapDial, trace.WithAttributes(
		telemetry.ServerAddress(host),
		telemetry.RPCProgram(prog),
		telemetry.RPCVersion(vers),
	))
	defer span.End()

	target, err := Resolve(ctx, host, prog, vers, opts...)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.ServerPort(int(target.Port())))

	logger.DebugCtx(ctx, "Resolved RPC service",
		logger.KeyProgram, prog,
		logger.KeyVersion, vers,
		logger.KeyAddress, target.String(),
	)

	o := buildOptions(opts)
	client, err := rpc.Dial(ctx, target.String(), prog, vers, o.clientOpts...)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return client, nil
}
