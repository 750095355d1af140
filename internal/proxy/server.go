package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/sluice-net/sluice/internal/dialer"
	"github.com/sluice-net/sluice/internal/socks5"
)

// Server accepts SOCKS5 clients and relays each one to its requested
// destination over an outbound connection.
type Server struct {
	ctx  context.Context
	cfg  Config
	log  *zap.Logger
	dial dialer.Dialer
	auth []socks5.Authenticator
}

// NewServer returns a Server configured by cfg. ctx is the base context
// for outbound dials and relays; canceling it aborts every session.
func NewServer(ctx context.Context, cfg Config) *Server {
	if ctx == nil {
		ctx = context.Background()
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dial := cfg.Dialer
	if dial == nil {
		dial = dialer.NewDirectDialer(dialer.Config{
			DialTimeout: cfg.DialTimeout,
			KeepAlive:   cfg.KeepAlive,
		})
	}

	auth := cfg.Authenticators
	if len(auth) == 0 {
		auth = socks5.DefaultAuthenticators
	}

	return &Server{ctx: ctx, cfg: cfg, log: log, dial: dial, auth: auth}
}

// Serve accepts connections on ln until the listener fails. Each session
// runs on its own goroutine; a session failure never affects the accept
// loop. A closed listener is a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	sess := newSession(conn, s.log)
	defer sess.close()
	defer func() {
		if r := recover(); r != nil {
			sess.log.Error("session panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := s.serveSession(sess); err != nil {
		sess.log.Debug("session failed", zap.Error(err))
	}
}
