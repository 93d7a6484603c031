package config

import (
	"github.com/marmos91/oncrpc/pkg/metrics"
	"github.com/marmos91/oncrpc/pkg/portmap"
	"github.com/marmos91/oncrpc/pkg/rpc"
)

// RPCOptions returns the rpc.Client options described by the client
// section. m may be nil.
func (c *ClientConfig) RPCOptions(m metrics.RPCClientMetrics) []rpc.Option {
	opts := []rpc.Option{
		rpc.WithXID(c.XID),
		rpc.WithBufferSize(c.BufferSize),
	}
	if m != nil {
		opts = append(opts, rpc.WithMetrics(m))
	}
	return opts
}

// PortmapOptions returns the portmapper lookup options described by the
// client section, passing m to every session created.
func (c *ClientConfig) PortmapOptions(m metrics.RPCClientMetrics) []portmap.Option {
	return []portmap.Option{
		portmap.WithPort(c.PortmapPort),
		portmap.WithNetID(c.NetID),
		portmap.WithOwner(c.Owner),
		portmap.WithClientOptions(c.RPCOptions(m)...),
	}
}

// RPCBs converts the static registrations to rpcbind entries.
func (p *PortmapConfig) RPCBs() []portmap.RPCB {
	list := make([]portmap.RPCB, 0, len(p.Registrations))
	for _, r := range p.Registrations {
		list = append(list, portmap.RPCB{
			Program: r.Program,
			Version: r.Version,
			NetID:   r.NetID,
			Addr:    r.Addr,
			Owner:   r.Owner,
		})
	}
	return list
}
