package socks5

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

// AuthMethod is a SOCKS5 authentication method tag from the greeting.
type AuthMethod byte

const (
	MethodNoAuth       AuthMethod = 0x00
	MethodUserPass     AuthMethod = 0x02
	MethodNoAcceptable AuthMethod = 0xFF
)

// ErrNoAcceptableMethods is returned by Negotiate when the client offered
// none of the methods the server is configured with.
var ErrNoAcceptableMethods = errors.New("no acceptable authentication methods")

// Greeting is the client's opening message: its protocol version and the
// authentication methods it offers, in the order offered.
type Greeting struct {
	Version byte
	Methods []byte
}

// Offers reports whether the client listed method in its greeting.
func (g Greeting) Offers(method AuthMethod) bool {
	return slices.Contains(g.Methods, byte(method))
}

// ReadGreeting reads the client greeting: a two byte header (version,
// method count) followed by exactly that many method bytes. The version is
// recorded, not validated.
func ReadGreeting(r io.Reader) (Greeting, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Greeting{}, fmt.Errorf("greeting header: %w", err)
	}
	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, methods); err != nil {
		return Greeting{}, fmt.Errorf("greeting methods: %w", err)
	}
	return Greeting{Version: hdr[0], Methods: methods}, nil
}

// WriteMethodSelection sends the server's two byte method selection.
func WriteMethodSelection(w io.Writer, method AuthMethod) error {
	if _, err := w.Write([]byte{Version, byte(method)}); err != nil {
		return fmt.Errorf("method selection: %w", err)
	}
	return nil
}

// Authenticator handles one authentication method once it has been
// selected. Implementations own any method-specific subnegotiation on rw.
type Authenticator interface {
	Method() AuthMethod
	Negotiate(rw io.ReadWriter) error
}

// NoAuth is the no-authentication-required method. It matches even when the
// client's greeting did not offer it, which keeps the relay's permissive
// negotiation: every well-formed greeting is answered with the no-auth
// selection.
type NoAuth struct{}

func (NoAuth) Method() AuthMethod { return MethodNoAuth }

func (NoAuth) Negotiate(io.ReadWriter) error { return nil }

// DefaultAuthenticators is the method set used when a server configures
// none.
var DefaultAuthenticators = []Authenticator{NoAuth{}}

// Negotiate consumes the client greeting on rw, selects an authentication
// method, answers with the method selection, and runs that method's
// subnegotiation. Authenticators are tried in the order given; the first
// whose method the client offered wins, except NoAuth, which matches
// unconditionally. When nothing matches, the no-acceptable-methods
// selection is written and ErrNoAcceptableMethods returned.
func Negotiate(rw io.ReadWriter, auths []Authenticator) (AuthMethod, error) {
	if len(auths) == 0 {
		auths = DefaultAuthenticators
	}
	greeting, err := ReadGreeting(rw)
	if err != nil {
		return 0, err
	}
	for _, a := range auths {
		method := a.Method()
		if method != MethodNoAuth && !greeting.Offers(method) {
			continue
		}
		if err := WriteMethodSelection(rw, method); err != nil {
			return 0, err
		}
		if err := a.Negotiate(rw); err != nil {
			return 0, fmt.Errorf("method %#02x subnegotiation: %w", byte(method), err)
		}
		return method, nil
	}
	_ = WriteMethodSelection(rw, MethodNoAcceptable)
	return 0, ErrNoAcceptableMethods
}
