package resolver

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/miekg/dns"

	"github.com/sluice-net/sluice/internal/socks5"
)

// DNS resolves domain targets against a fixed DNS server instead of the
// process resolver. A records are queried before AAAA, and answers keep
// their server order within each type.
type DNS struct {
	// Server is the DNS server as host:port.
	Server string

	client dns.Client
}

func (d *DNS) Resolve(ctx context.Context, target socks5.Target) ([]netip.AddrPort, error) {
	if ep, ok, err := literalEndpoint(target); err != nil {
		return nil, err
	} else if ok {
		return []netip.AddrPort{ep}, nil
	}

	name := dns.Fqdn(target.Host())

	var endpoints []netip.AddrPort
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(name, qtype)
		msg.RecursionDesired = true

		resp, _, err := d.client.ExchangeContext(ctx, msg, d.Server)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			switch record := rr.(type) {
			case *dns.A:
				if ip4 := record.A.To4(); ip4 != nil {
					if addr, ok := netip.AddrFromSlice(ip4); ok {
						endpoints = append(endpoints, netip.AddrPortFrom(addr, target.Port))
					}
				}
			case *dns.AAAA:
				if addr, ok := netip.AddrFromSlice(record.AAAA); ok {
					endpoints = append(endpoints, netip.AddrPortFrom(addr, target.Port))
				}
			}
		}
	}

	if len(endpoints) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("dns query %q via %s: %w", name, d.Server, lastErr)
		}
		return nil, fmt.Errorf("resolve %q via %s: %w", target.Host(), d.Server, ErrNoAddresses)
	}
	return endpoints, nil
}
