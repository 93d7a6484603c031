// Package portmap locates ONC RPC services through the portmapper
// (rpcbind, RFC 1833) and opens client sessions to them.
//
// Dial is the usual entry point: it asks the portmapper on a host for the
// universal address of a program/version with GETADDR, then connects to
// that address and returns an *rpc.Client bound to the program.
package portmap

import (
	"errors"

	"github.com/marmos91/oncrpc/pkg/rpc"
)

// Program is the portmapper program number.
const Program = rpc.ProgramPortmap

// Protocol versions. Version 2 is the original portmapper protocol keyed
// by IP protocol numbers and ports; versions 3 and 4 are rpcbind, keyed by
// netid and universal address.
const (
	Version2 = 2
	Version3 = 3
	Version4 = 4
)

// Procedure numbers shared by all versions.
const (
	ProcNull  = 0
	ProcSet   = 1
	ProcUnset = 2

	// ProcGetAddr is GETADDR in versions 3 and 4, GETPORT in version 2.
	ProcGetAddr = 3
	ProcGetPort = 3

	ProcDump = 4

	// ProcCallit is CALLIT in version 2, CALLIT/BCAST in 3 and 4. It is
	// never served.
	ProcCallit = 5

	// ProcGetTime exists in versions 3 and 4 only.
	ProcGetTime = 6
)

// IP protocol numbers used by version 2 mappings.
const (
	ProtoTCP = 6
	ProtoUDP = 17
)

// Network ids used by versions 3 and 4.
const (
	NetIDTCP  = "tcp"
	NetIDTCP6 = "tcp6"
	NetIDUDP  = "udp"
	NetIDUDP6 = "udp6"
)

const (
	// DefaultPort is the well-known portmapper port.
	DefaultPort = 111

	// DefaultOwner is the owner string sent in GETADDR requests.
	DefaultOwner = "rpclib"
)

var (
	// ErrServerUnavailable is returned when the portmapper has no address
	// registered for the requested program and version.
	ErrServerUnavailable = errors.New("portmap: rpc server not available")

	// ErrInvalidUniversalAddr is returned for malformed universal addresses.
	ErrInvalidUniversalAddr = errors.New("portmap: invalid universal address")
)

// NetIDForProto maps a version 2 protocol number to a netid. It returns ""
// for unknown protocols.
func NetIDForProto(prot uint32) string {
	switch prot {
	case ProtoTCP:
		return NetIDTCP
	case ProtoUDP:
		return NetIDUDP
	}
	return ""
}

// ProtoForNetID maps a netid to a version 2 protocol number, or 0.
func ProtoForNetID(netid string) uint32 {
	switch netid {
	case NetIDTCP, NetIDTCP6:
		return ProtoTCP
	case NetIDUDP, NetIDUDP6:
		return ProtoUDP
	}
	return 0
}
