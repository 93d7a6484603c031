package portmap

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/marmos91/oncrpc/internal/logger"
	"github.com/marmos91/oncrpc/internal/server"
	"github.com/marmos91/oncrpc/pkg/portmap"
	"github.com/marmos91/oncrpc/pkg/xdr"
)

// Handler serves portmapper procedures against a Registry.
type Handler struct {
	Registry *Registry

	// now is replaced in tests.
	now func() time.Time
}

// NewHandler creates a handler for registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{Registry: registry, now: time.Now}
}

// Null handles NULL (procedure 0) in every version.
func (h *Handler) Null(context.Context, *server.Request) (xdr.XdrEncoder, error) {
	return nil, nil
}

// Set handles rpcbind SET: registers an rpcb. Only loopback clients may
// change registrations; others get FALSE.
func (h *Handler) Set(_ context.Context, req *server.Request) (xdr.XdrEncoder, error) {
	var b portmap.RPCB
	if err := req.Decode(&b); err != nil {
		return nil, err
	}
	if !isLoopback(req.ClientAddr) {
		logger.Warn("Portmap: SET rejected from non-local client", logger.KeyAddress, req.ClientAddr, logger.KeyProgram, b.Program)
		return xdr.Bool(false), nil
	}
	if _, err := portmap.ParseUniversalAddr(b.Addr); err != nil {
		return xdr.Bool(false), nil
	}
	ok := h.Registry.Set(b)
	logger.Debug("Portmap: SET",
		logger.KeyProgram, b.Program,
		logger.KeyVersion, b.Version,
		logger.KeyNetID, b.NetID,
		logger.KeyUniversal, b.Addr,
		logger.KeyOwner, b.Owner,
		logger.KeyStatus, ok,
	)
	return xdr.Bool(ok), nil
}

// Unset handles rpcbind UNSET.
func (h *Handler) Unset(_ context.Context, req *server.Request) (xdr.XdrEncoder, error) {
	var b portmap.RPCB
	if err := req.Decode(&b); err != nil {
		return nil, err
	}
	if !isLoopback(req.ClientAddr) {
		logger.Warn("Portmap: UNSET rejected from non-local client", logger.KeyAddress, req.ClientAddr, logger.KeyProgram, b.Program)
		return xdr.Bool(false), nil
	}
	return xdr.Bool(h.Registry.Unset(b.Program, b.Version, b.NetID)), nil
}

// GetAddr handles rpcbind GETADDR. It returns "" for unknown programs.
// Registrations on a wildcard IP are answered with the address the
// request arrived on.
func (h *Handler) GetAddr(_ context.Context, req *server.Request) (xdr.XdrEncoder, error) {
	var b portmap.RPCB
	if err := req.Decode(&b); err != nil {
		return nil, err
	}
	uaddr, ok := h.Registry.GetAddr(b.Program, b.Version, b.NetID)
	if !ok {
		return xdr.String(""), nil
	}
	return xdr.String(mergeAddr(uaddr, req.LocalAddr)), nil
}

// Dump handles rpcbind DUMP.
func (h *Handler) Dump(context.Context, *server.Request) (xdr.XdrEncoder, error) {
	return portmap.RPCBList(h.Registry.Dump()), nil
}

// GetTime handles rpcbind GETTIME: seconds since the epoch.
func (h *Handler) GetTime(context.Context, *server.Request) (xdr.XdrEncoder, error) {
	return xdr.Uint32(uint32(h.now().Unix())), nil
}

// SetV2 handles version 2 SET.
func (h *Handler) SetV2(_ context.Context, req *server.Request) (xdr.XdrEncoder, error) {
	var m portmap.Mapping
	if err := req.Decode(&m); err != nil {
		return nil, err
	}
	if !isLoopback(req.ClientAddr) {
		logger.Warn("Portmap: SET rejected from non-local client", logger.KeyAddress, req.ClientAddr, logger.KeyProgram, m.Program)
		return xdr.Bool(false), nil
	}
	return xdr.Bool(h.Registry.SetMapping(m)), nil
}

// UnsetV2 handles version 2 UNSET. The protocol field is ignored, as in
// RFC 1833.
func (h *Handler) UnsetV2(_ context.Context, req *server.Request) (xdr.XdrEncoder, error) {
	var m portmap.Mapping
	if err := req.Decode(&m); err != nil {
		return nil, err
	}
	if !isLoopback(req.ClientAddr) {
		logger.Warn("Portmap: UNSET rejected from non-local client", logger.KeyAddress, req.ClientAddr, logger.KeyProgram, m.Program)
		return xdr.Bool(false), nil
	}
	return xdr.Bool(h.Registry.Unset(m.Program, m.Version, "")), nil
}

// GetPort handles version 2 GETPORT. Port 0 means not registered.
func (h *Handler) GetPort(_ context.Context, req *server.Request) (xdr.XdrEncoder, error) {
	var m portmap.Mapping
	if err := req.Decode(&m); err != nil {
		return nil, err
	}
	return xdr.Uint32(h.Registry.GetPort(m.Program, m.Version, m.Protocol)), nil
}

// DumpV2 handles version 2 DUMP.
func (h *Handler) DumpV2(context.Context, *server.Request) (xdr.XdrEncoder, error) {
	return portmap.MappingList(h.Registry.Mappings()), nil
}

// mergeAddr replaces a wildcard IP in uaddr with the IP of local.
func mergeAddr(uaddr, local string) string {
	ap, err := portmap.ParseUniversalAddr(uaddr)
	if err != nil || !ap.Addr().IsUnspecified() {
		return uaddr
	}
	localAP, err := netip.ParseAddrPort(local)
	if err != nil {
		return uaddr
	}
	return portmap.FormatUniversalAddr(netip.AddrPortFrom(localAP.Addr(), ap.Port()))
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return ip.Unmap().IsLoopback()
}
