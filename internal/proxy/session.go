package proxy

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sluice-net/sluice/internal/relay"
	"github.com/sluice-net/sluice/internal/socks5"
)

// session is one client connection's state from accept to teardown.
type session struct {
	conn    net.Conn
	log     *zap.Logger
	started time.Time
}

func newSession(conn net.Conn, log *zap.Logger) *session {
	return &session{
		conn:    conn,
		started: time.Now(),
		log: log.With(
			zap.String("session", uuid.NewString()[:8]),
			zap.String("client", conn.RemoteAddr().String()),
		),
	}
}

func (sess *session) close() {
	_ = sess.conn.Close()
}

// serveSession drives one session: negotiation, request, outbound dial,
// success reply, then the relay. Any failure drops the connection without
// writing a SOCKS5 error reply.
func (s *Server) serveSession(sess *session) error {
	if s.cfg.NegotiationTimeout > 0 {
		_ = sess.conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	method, err := socks5.Negotiate(sess.conn, s.auth)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}

	req, err := socks5.ReadRequest(sess.conn)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	if s.cfg.NegotiationTimeout > 0 {
		_ = sess.conn.SetDeadline(time.Time{})
	}

	sess.log = sess.log.With(zap.Stringer("target", req.Target))
	sess.log.Debug("request accepted",
		zap.Uint8("method", uint8(method)),
		zap.Uint8("command", req.Command),
		zap.Stringer("addrtype", req.Target.Type),
	)

	target, err := s.dial.DialTarget(s.ctx, req.Target)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	if err := socks5.WriteSuccessReply(sess.conn); err != nil {
		_ = target.Close()
		return err
	}

	sess.log.Info("relay started")
	if err := relay.Run(s.ctx, sess.conn, target, s.cfg.IOTimeout); err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	sess.log.Info("relay finished", zap.Duration("duration", time.Since(sess.started)))
	return nil
}
