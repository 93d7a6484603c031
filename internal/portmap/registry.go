// Package portmap implements an rpcbind service (versions 2, 3 and 4) on
// top of the generic RPC server, backed by an in-memory registry.
package portmap

import (
	"fmt"
	"net/netip"
	"sort"
	"sync"

	"github.com/marmos91/oncrpc/pkg/portmap"
)

// ownerSuperuser is recorded for registrations made through version 2,
// which carries no owner.
const ownerSuperuser = "superuser"

type registryKey struct {
	prog  uint32
	vers  uint32
	netid string
}

// Registry maps (program, version, netid) to universal addresses.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]portmap.RPCB
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]portmap.RPCB)}
}

// Set adds b. It returns false if the (program, version, netid) triple is
// already registered.
func (r *Registry) Set(b portmap.RPCB) bool {
	k := registryKey{b.Program, b.Version, b.NetID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[k]; exists {
		return false
	}
	r.entries[k] = b
	return true
}

// Unset removes prog/vers for netid, or for every netid when netid is
// empty. It returns false if nothing was removed.
func (r *Registry) Unset(prog, vers uint32, netid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for k := range r.entries {
		if k.prog == prog && k.vers == vers && (netid == "" || k.netid == netid) {
			delete(r.entries, k)
			removed = true
		}
	}
	return removed
}

// GetAddr returns the universal address of prog/vers on netid. An empty
// netid matches any, preferring the lowest netid in sort order.
func (r *Registry) GetAddr(prog, vers uint32, netid string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if netid != "" {
		b, ok := r.entries[registryKey{prog, vers, netid}]
		return b.Addr, ok
	}
	var (
		found portmap.RPCB
		ok    bool
	)
	for k, b := range r.entries {
		if k.prog == prog && k.vers == vers && (!ok || k.netid < found.NetID) {
			found, ok = b, true
		}
	}
	return found.Addr, ok
}

// GetPort answers a version 2 GETPORT: the port of prog/vers over the IP
// protocol prot, or 0 if not registered.
func (r *Registry) GetPort(prog, vers, prot uint32) uint32 {
	netid := portmap.NetIDForProto(prot)
	if netid == "" {
		return 0
	}
	uaddr, ok := r.GetAddr(prog, vers, netid)
	if !ok {
		return 0
	}
	ap, err := portmap.ParseUniversalAddr(uaddr)
	if err != nil {
		return 0
	}
	return uint32(ap.Port())
}

// SetMapping registers a version 2 mapping on the wildcard address.
func (r *Registry) SetMapping(m portmap.Mapping) bool {
	netid := portmap.NetIDForProto(m.Protocol)
	if netid == "" || m.Port > 0xffff {
		return false
	}
	return r.Set(portmap.RPCB{
		Program: m.Program,
		Version: m.Version,
		NetID:   netid,
		Addr:    portmap.FormatUniversalAddr(netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(m.Port))),
		Owner:   ownerSuperuser,
	})
}

// Dump returns every registration ordered by program, version and netid.
func (r *Registry) Dump() []portmap.RPCB {
	r.mu.RLock()
	list := make([]portmap.RPCB, 0, len(r.entries))
	for _, b := range r.entries {
		list = append(list, b)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Program != b.Program {
			return a.Program < b.Program
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.NetID < b.NetID
	})
	return list
}

// Mappings returns the registrations expressible in version 2: those on
// tcp or udp with a parseable address.
func (r *Registry) Mappings() []portmap.Mapping {
	var list []portmap.Mapping
	for _, b := range r.Dump() {
		prot := portmap.ProtoForNetID(b.NetID)
		if prot == 0 {
			continue
		}
		ap, err := portmap.ParseUniversalAddr(b.Addr)
		if err != nil {
			continue
		}
		list = append(list, portmap.Mapping{
			Program:  b.Program,
			Version:  b.Version,
			Protocol: prot,
			Port:     uint32(ap.Port()),
		})
	}
	return list
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RegisterSelf registers the portmapper itself, versions 2 to 4 over tcp,
// on the wildcard address at port.
func (r *Registry) RegisterSelf(port uint16) {
	uaddr := portmap.FormatUniversalAddr(netip.AddrPortFrom(netip.IPv4Unspecified(), port))
	for _, vers := range []uint32{portmap.Version2, portmap.Version3, portmap.Version4} {
		r.Set(portmap.RPCB{
			Program: portmap.Program,
			Version: vers,
			NetID:   portmap.NetIDTCP,
			Addr:    uaddr,
			Owner:   ownerSuperuser,
		})
	}
}

// Register adds every registration in list, failing on the first
// duplicate or malformed address.
func (r *Registry) Register(list []portmap.RPCB) error {
	for _, b := range list {
		if _, err := portmap.ParseUniversalAddr(b.Addr); err != nil {
			return fmt.Errorf("register program %d version %d: %w", b.Program, b.Version, err)
		}
		if !r.Set(b) {
			return fmt.Errorf("program %d version %d on %s is already registered", b.Program, b.Version, b.NetID)
		}
	}
	return nil
}
