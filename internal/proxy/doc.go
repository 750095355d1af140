// Package proxy implements the SOCKS5 listener side of sluice.
//
// A Server accepts client connections, negotiates the handshake, opens the
// outbound connection through a dialer, and hands both ends to the relay.
// The package also contains shared listener plumbing such as SO_REUSEADDR
// and keepalive configuration.
package proxy
