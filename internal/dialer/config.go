package dialer

import (
	"net"
	"time"

	"github.com/sluice-net/sluice/internal/resolver"
)

type Config struct {
	// DialTimeout bounds one outbound connection attempt. For direct dialing
	// the resolver lookup is bounded separately by the caller's context.
	DialTimeout time.Duration

	// KeepAlive is applied to outbound TCP connections.
	KeepAlive net.KeepAliveConfig

	// Resolver maps domain targets to endpoints for direct dialing. Nil
	// means the process resolver.
	Resolver resolver.Resolver
}
