package dialer

import (
	"context"
	"fmt"
	"net"
	"time"

	txsocks5 "github.com/txthinking/socks5"

	"github.com/sluice-net/sluice/internal/socks5"
)

// SOCKS5ProxyDialer chains sessions through an upstream SOCKS5 proxy. The
// target is passed through as received, so domain targets are resolved by
// the upstream, not locally.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	username  string
	password  string
}

func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, username, password string) Dialer {
	return &SOCKS5ProxyDialer{cfg: cfg, proxyAddr: proxyAddr, username: username, password: password}
}

func (f *SOCKS5ProxyDialer) DialTarget(ctx context.Context, target socks5.Target) (net.Conn, error) {
	_ = ctx

	tcpTimeout := 0
	if f.cfg.DialTimeout > 0 {
		tcpTimeout = int(time.Duration(f.cfg.DialTimeout).Seconds())
		if tcpTimeout <= 0 {
			tcpTimeout = 1
		}
	}

	client, err := txsocks5.NewClient(f.proxyAddr, f.username, f.password, tcpTimeout, 0)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy init: %w", err)
	}

	c, err := client.Dial("tcp", target.Address())
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", target.Address(), err)
	}

	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(f.cfg.KeepAlive)
	}
	return c, nil
}
