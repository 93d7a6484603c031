package portmap

import "github.com/marmos91/oncrpc/pkg/rpc"

type options struct {
	port       int
	netID      string
	owner      string
	clientOpts []rpc.Option
}

func defaultOptions() options {
	return options{
		port:  DefaultPort,
		netID: NetIDTCP,
		owner: DefaultOwner,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures portmapper lookups.
type Option func(*options)

// WithPort sets the portmapper port. The default is 111.
func WithPort(port int) Option {
	return func(o *options) {
		if port > 0 {
			o.port = port
		}
	}
}

// WithNetID sets the netid sent in GETADDR. The default is "tcp".
func WithNetID(netid string) Option {
	return func(o *options) {
		if netid != "" {
			o.netID = netid
		}
	}
}

// WithOwner sets the owner string sent in GETADDR.
func WithOwner(owner string) Option {
	return func(o *options) { o.owner = owner }
}

// WithClientOptions passes options to every rpc.Client created, both the
// temporary portmapper session and the returned one.
func WithClientOptions(opts ...rpc.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}
