package socks5

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
)

// Version is the SOCKS protocol version this package speaks.
const Version byte = 0x05

const reserved byte = 0x00

// AddrType is the ATYP tag describing how a destination address is encoded
// on the wire.
type AddrType byte

const (
	AddrTypeIPv4   AddrType = 0x01
	AddrTypeDomain AddrType = 0x03
	AddrTypeIPv6   AddrType = 0x04
)

func (t AddrType) String() string {
	switch t {
	case AddrTypeIPv4:
		return "ipv4"
	case AddrTypeDomain:
		return "domain"
	case AddrTypeIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("addrtype(%#02x)", byte(t))
	}
}

// UnsupportedAddrTypeError is an ATYP byte outside the three encodings
// defined by RFC 1928.
type UnsupportedAddrTypeError byte

func (e UnsupportedAddrTypeError) Error() string {
	return fmt.Sprintf("unsupported address type %#02x", byte(e))
}

func (e UnsupportedAddrTypeError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

// ParseAddrType maps an ATYP wire byte to its AddrType.
func ParseAddrType(b byte) (AddrType, error) {
	switch t := AddrType(b); t {
	case AddrTypeIPv4, AddrTypeDomain, AddrTypeIPv6:
		return t, nil
	default:
		return 0, UnsupportedAddrTypeError(b)
	}
}

// Target is the destination carried by a SOCKS5 request: the address type
// tag, the address bytes exactly as they appeared on the wire, and the
// destination port.
//
// Raw holds 4 bytes for IPv4, 16 bytes for IPv6, and the name bytes without
// the length prefix for a domain.
type Target struct {
	Type AddrType
	Raw  []byte
	Port uint16
}

// Host returns the destination host in textual form: dotted quad for IPv4,
// canonical RFC 5952 text for IPv6, and the name as sent for a domain.
func (t Target) Host() string {
	switch t.Type {
	case AddrTypeIPv4, AddrTypeIPv6:
		return net.IP(t.Raw).String()
	default:
		return string(t.Raw)
	}
}

// Address returns the destination as host:port, bracketing IPv6 hosts, in
// the form net.Dial accepts.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host(), strconv.Itoa(int(t.Port)))
}

func (t Target) String() string {
	return t.Address()
}

// successReply is the only reply this relay ever sends: version 5, success,
// reserved, and an all-zero IPv4 bind address. The bound address is not
// reported; standard clients ignore it for CONNECT.
var successReply = [10]byte{Version, 0x00, reserved, byte(AddrTypeIPv4), 0, 0, 0, 0, 0, 0}

// WriteSuccessReply sends the fixed success reply that tells the client the
// outbound connection is up and the relay follows.
func WriteSuccessReply(w io.Writer) error {
	if _, err := w.Write(successReply[:]); err != nil {
		return fmt.Errorf("success reply: %w", err)
	}
	return nil
}
