package portmap

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// FormatUniversalAddr renders addr as an RFC 5665 universal address:
// the textual IP followed by the high and low octets of the port, all
// dot-separated, e.g. "127.0.0.1.0.111" or "::1.8.1".
//
// IPv4-mapped IPv6 addresses are rendered as IPv4. Zones are dropped.
func FormatUniversalAddr(addr netip.AddrPort) string {
	ip := addr.Addr().Unmap().WithZone("")
	port := addr.Port()
	return fmt.Sprintf("%s.%d.%d", ip, port>>8, port&0xff)
}

// ParseUniversalAddr parses a universal address produced by
// FormatUniversalAddr or by a portmapper. The port is hi*256+lo.
func ParseUniversalAddr(uaddr string) (netip.AddrPort, error) {
	lo := strings.LastIndexByte(uaddr, '.')
	if lo < 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidUniversalAddr, uaddr)
	}
	hi := strings.LastIndexByte(uaddr[:lo], '.')
	if hi < 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidUniversalAddr, uaddr)
	}

	portHi, err := strconv.ParseUint(uaddr[hi+1:lo], 10, 8)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q: port high octet: %w", ErrInvalidUniversalAddr, uaddr, err)
	}
	portLo, err := strconv.ParseUint(uaddr[lo+1:], 10, 8)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q: port low octet: %w", ErrInvalidUniversalAddr, uaddr, err)
	}

	ip, err := netip.ParseAddr(uaddr[:hi])
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q: %w", ErrInvalidUniversalAddr, uaddr, err)
	}
	return netip.AddrPortFrom(ip, uint16(portHi<<8|portLo)), nil
}
