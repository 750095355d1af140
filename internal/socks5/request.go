package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// CmdConnect is the SOCKS5 CONNECT command value.
const CmdConnect byte = 0x01

// Request is the post-negotiation SOCKS5 request.
type Request struct {
	Command byte
	Target  Target
}

// ReadRequest reads a SOCKS5 request: the four byte header (version,
// command, reserved, address type) followed by the variable-length
// destination and the two byte big-endian port.
//
// The version, command, and reserved bytes are consumed but not validated;
// this relay treats every request as CONNECT. An address type outside IPv4,
// domain, or IPv6 is an UnsupportedAddrTypeError.
func ReadRequest(r io.Reader) (Request, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Request{}, fmt.Errorf("request header: %w", err)
	}
	atyp, err := ParseAddrType(hdr[3])
	if err != nil {
		return Request{}, err
	}
	target, err := readTarget(r, atyp)
	if err != nil {
		return Request{}, err
	}
	return Request{Command: hdr[1], Target: target}, nil
}

func readTarget(r io.Reader, atyp AddrType) (Target, error) {
	var raw []byte
	switch atyp {
	case AddrTypeIPv4:
		raw = make([]byte, net.IPv4len)
		if _, err := io.ReadFull(r, raw); err != nil {
			return Target{}, fmt.Errorf("ipv4 address: %w", err)
		}
	case AddrTypeDomain:
		var length [1]byte
		if _, err := io.ReadFull(r, length[:]); err != nil {
			return Target{}, fmt.Errorf("domain length: %w", err)
		}
		raw = make([]byte, int(length[0]))
		if _, err := io.ReadFull(r, raw); err != nil {
			return Target{}, fmt.Errorf("domain name: %w", err)
		}
	case AddrTypeIPv6:
		raw = make([]byte, net.IPv6len)
		if _, err := io.ReadFull(r, raw); err != nil {
			return Target{}, fmt.Errorf("ipv6 address: %w", err)
		}
	}

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return Target{}, fmt.Errorf("port: %w", err)
	}
	return Target{Type: atyp, Raw: raw, Port: binary.BigEndian.Uint16(port[:])}, nil
}
