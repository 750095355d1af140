package dialer

import (
	"context"
	"fmt"
	"net"

	"github.com/sluice-net/sluice/internal/resolver"
	"github.com/sluice-net/sluice/internal/socks5"
)

type directDialer struct {
	cfg      Config
	resolver resolver.Resolver
}

// NewDirectDialer returns a Dialer that resolves the target and connects to
// candidate endpoints in resolver order, returning the first connection
// that succeeds.
func NewDirectDialer(cfg Config) Dialer {
	r := cfg.Resolver
	if r == nil {
		r = resolver.System{}
	}
	return &directDialer{cfg: cfg, resolver: r}
}

func (f *directDialer) DialTarget(ctx context.Context, target socks5.Target) (net.Conn, error) {
	endpoints, err := f.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("dial %s: %w", target.Address(), resolver.ErrNoAddresses)
	}

	var lastErr error
	for _, ep := range endpoints {
		dd := net.Dialer{Timeout: f.cfg.DialTimeout}

		conn, err := dd.DialContext(ctx, "tcp", ep.String())
		if err != nil {
			lastErr = err
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetKeepAliveConfig(f.cfg.KeepAlive)
		}
		return conn, nil
	}
	return nil, fmt.Errorf("dial %s: %w", target.Address(), lastErr)
}
