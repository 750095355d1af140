package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/sluice-net/sluice/internal/socks5"
)

// ErrNoAddresses is returned when a domain resolves to nothing.
var ErrNoAddresses = errors.New("host has no addresses")

// Resolver turns a SOCKS5 target into candidate endpoints, in the order
// connection attempts should be made.
type Resolver interface {
	Resolve(ctx context.Context, target socks5.Target) ([]netip.AddrPort, error)
}

// literalEndpoint converts the two literal address types without a lookup.
// Domain targets return ok=false.
func literalEndpoint(target socks5.Target) (netip.AddrPort, bool, error) {
	switch target.Type {
	case socks5.AddrTypeIPv4:
		if len(target.Raw) != net.IPv4len {
			return netip.AddrPort{}, false, fmt.Errorf("ipv4 target: got %d address bytes", len(target.Raw))
		}
		return netip.AddrPortFrom(netip.AddrFrom4([4]byte(target.Raw)), target.Port), true, nil
	case socks5.AddrTypeIPv6:
		if len(target.Raw) != net.IPv6len {
			return netip.AddrPort{}, false, fmt.Errorf("ipv6 target: got %d address bytes", len(target.Raw))
		}
		return netip.AddrPortFrom(netip.AddrFrom16([16]byte(target.Raw)), target.Port), true, nil
	default:
		return netip.AddrPort{}, false, nil
	}
}

// System resolves domain targets with the process resolver.
type System struct{}

func (System) Resolve(ctx context.Context, target socks5.Target) ([]netip.AddrPort, error) {
	if ep, ok, err := literalEndpoint(target); err != nil {
		return nil, err
	} else if ok {
		return []netip.AddrPort{ep}, nil
	}

	host := target.Host()
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %q: %w", host, ErrNoAddresses)
	}

	endpoints := make([]netip.AddrPort, len(addrs))
	for i, addr := range addrs {
		endpoints[i] = netip.AddrPortFrom(addr.Unmap(), target.Port)
	}
	return endpoints, nil
}
