// Package resolver turns SOCKS5 destinations into dialable endpoints.
//
// IPv4 and IPv6 targets convert without any lookup. Domain targets resolve
// through the process resolver (System) or a fixed DNS server (DNS); the
// endpoint order is the order connection attempts should be made in.
package resolver
