// Package dialer provides outbound dialing for SOCKS5 targets.
//
// Dialers implement a small interface (DialTarget) and are used by the
// proxy server to establish outbound connections either directly or through
// an upstream SOCKS5 proxy. The direct dialer resolves the target and tries
// candidate endpoints in order; the upstream dialer passes the target
// through unresolved so the remote proxy resolves it.
package dialer
