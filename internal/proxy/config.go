package proxy

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/sluice-net/sluice/internal/dialer"
	"github.com/sluice-net/sluice/internal/socks5"
)

type Config struct {
	// NegotiationTimeout bounds the greeting, method selection, and request
	// for one session. Zero means no deadline.
	NegotiationTimeout time.Duration

	// DialTimeout bounds outbound connection attempts when no Dialer is
	// configured.
	DialTimeout time.Duration

	// IOTimeout is an absolute deadline for an established relay. Zero
	// lets the relay run until EOF or error.
	IOTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// Dialer opens outbound connections. Nil means direct dialing with the
	// process resolver.
	Dialer dialer.Dialer

	// Authenticators are tried in order during negotiation. Empty means
	// no-auth only.
	Authenticators []socks5.Authenticator

	// Logger receives session events. Nil disables logging.
	Logger *zap.Logger
}
