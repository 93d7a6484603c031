package portmap

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/oncrpc/internal/server"
	"github.com/marmos91/oncrpc/pkg/portmap"
	"github.com/marmos91/oncrpc/pkg/rpc"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

// startPortmapper serves a portmapper on a loopback port and returns its
// port and registry.
func startPortmapper(t *testing.T) (*server.Server, *Registry, int) {
	t.Helper()

	srv, registry := NewServer(ServerConfig{Address: "127.0.0.1:0"})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	port := int(netip.MustParseAddrPort(srv.Addr()).Port())
	registry.RegisterSelf(uint16(port))
	return srv, registry, port
}

func TestPortmapperV4(t *testing.T) {
	_, registry, port := startPortmapper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pm, err := portmap.DialPortmapper(ctx, "127.0.0.1", portmap.WithPort(port))
	require.NoError(t, err)
	defer func() { _ = pm.Close() }()

	t.Run("Null", func(t *testing.T) {
		require.NoError(t, pm.Null(ctx))
	})

	t.Run("SetAndGetAddr", func(t *testing.T) {
		ok, err := pm.Set(ctx, portmap.RPCB{Program: 0x20000001, Version: 1, NetID: "tcp", Addr: "127.0.0.1.128.7", Owner: "test"})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = pm.Set(ctx, portmap.RPCB{Program: 0x20000001, Version: 1, NetID: "tcp", Addr: "127.0.0.1.128.8", Owner: "test"})
		require.NoError(t, err)
		assert.False(t, ok, "duplicate registration")

		uaddr, err := pm.GetAddr(ctx, 0x20000001, 1)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1.128.7", uaddr)
	})

	t.Run("SetRejectsMalformedAddr", func(t *testing.T) {
		ok, err := pm.Set(ctx, portmap.RPCB{Program: 0x20000002, Version: 1, NetID: "tcp", Addr: "nowhere"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("GetAddrUnknown", func(t *testing.T) {
		uaddr, err := pm.GetAddr(ctx, 0x20000099, 1)
		require.NoError(t, err)
		assert.Empty(t, uaddr)
	})

	t.Run("GetAddrMergesWildcard", func(t *testing.T) {
		uaddr, err := pm.GetAddr(ctx, portmap.Program, portmap.Version4)
		require.NoError(t, err)

		ap, err := portmap.ParseUniversalAddr(uaddr)
		require.NoError(t, err)
		assert.Equal(t, netip.MustParseAddr("127.0.0.1"), ap.Addr())
		assert.Equal(t, uint16(port), ap.Port())
	})

	t.Run("Dump", func(t *testing.T) {
		list, err := pm.Dump(ctx)
		require.NoError(t, err)
		assert.Equal(t, registry.Dump(), list)
		assert.Len(t, list, 4)
	})

	t.Run("GetTime", func(t *testing.T) {
		now, err := pm.GetTime(ctx)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), now, 5*time.Second)
	})

	t.Run("Unset", func(t *testing.T) {
		ok, err := pm.Unset(ctx, portmap.RPCB{Program: 0x20000001, Version: 1})
		require.NoError(t, err)
		assert.True(t, ok)

		uaddr, err := pm.GetAddr(ctx, 0x20000001, 1)
		require.NoError(t, err)
		assert.Empty(t, uaddr)
	})
}

func TestPortmapperV2(t *testing.T) {
	srv, _, _ := startPortmapper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := rpc.Dial(ctx, srv.Addr(), portmap.Program, portmap.Version2)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	nlm := &portmap.Mapping{Program: 100021, Version: 4, Protocol: portmap.ProtoTCP, Port: 4045}

	t.Run("Set", func(t *testing.T) {
		var ok xdr.Bool
		require.NoError(t, client.Call(ctx, portmap.ProcSet, nlm, &ok))
		assert.True(t, bool(ok))
	})

	t.Run("GetPort", func(t *testing.T) {
		var port xdr.Uint32
		require.NoError(t, client.Call(ctx, portmap.ProcGetPort, nlm, &port))
		assert.Equal(t, xdr.Uint32(4045), port)

		missing := &portmap.Mapping{Program: 999999, Version: 1, Protocol: portmap.ProtoTCP}
		require.NoError(t, client.Call(ctx, portmap.ProcGetPort, missing, &port))
		assert.Equal(t, xdr.Uint32(0), port)
	})

	t.Run("Dump", func(t *testing.T) {
		var list portmap.MappingList
		require.NoError(t, client.Call(ctx, portmap.ProcDump, nil, &list))
		assert.Contains(t, []portmap.Mapping(list), *nlm)
	})

	t.Run("Unset", func(t *testing.T) {
		var ok xdr.Bool
		require.NoError(t, client.Call(ctx, portmap.ProcUnset, nlm, &ok))
		assert.True(t, bool(ok))
	})

	t.Run("CallitNotServed", func(t *testing.T) {
		err := client.Call(ctx, portmap.ProcCallit, nil, &xdr.Void{})
		assert.ErrorIs(t, err, rpc.ErrProcUnavail)
	})

	t.Run("GarbageArgs", func(t *testing.T) {
		var port xdr.Uint32
		err := client.Call(ctx, portmap.ProcGetPort, xdr.Uint32(1), &port)
		assert.ErrorIs(t, err, rpc.ErrGarbageArgs)
	})
}

func TestPortmapperUnsupportedVersion(t *testing.T) {
	srv, _, _ := startPortmapper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := rpc.Dial(ctx, srv.Addr(), portmap.Program, 5)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	err = client.Call(ctx, portmap.ProcNull, nil, &xdr.Void{})
	var acceptErr *rpc.AcceptError
	require.ErrorAs(t, err, &acceptErr)
	assert.Equal(t, rpc.ProgMismatch, acceptErr.Stat)
	assert.Equal(t, uint32(2), acceptErr.Low)
	assert.Equal(t, uint32(4), acceptErr.High)
}
