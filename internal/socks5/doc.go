// Package socks5 implements the server side of the SOCKS5 wire protocol
// (RFC 1928): greeting and method negotiation, request parsing for IPv4,
// domain, and IPv6 destinations, and the fixed success reply.
//
// Only the pieces a CONNECT relay needs are implemented. Malformed input is
// reported as an error and never answered on the wire; the caller is
// expected to drop the connection.
package socks5
