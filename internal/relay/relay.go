package relay

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const copyBufferSize = 32 * 1024

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

// CloseWriter is implemented by connections that can shut down their write
// side independently of reads, like *net.TCPConn.
type CloseWriter interface {
	CloseWrite() error
}

// Run copies bytes between client and target in both directions until both
// directions have seen EOF, either connection fails, or ctx is canceled.
//
// EOF from one side is propagated to the other as a write-side shutdown
// when the connection supports it, leaving the opposite direction free to
// keep draining. On a transport error or ctx cancellation both connections
// are closed immediately to unblock the surviving copy; the first error is
// returned. Both connections are closed by the time Run returns.
//
// ioTimeout, when nonzero, is an absolute deadline on both connections for
// the whole exchange.
func Run(ctx context.Context, client, target net.Conn, ioTimeout time.Duration) error {
	if ioTimeout > 0 {
		dl := time.Now().Add(ioTimeout)
		_ = client.SetDeadline(dl)
		_ = target.SetDeadline(dl)
	}

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = target.Close()
		})
	}
	defer closeBoth()

	g, gctx := errgroup.WithContext(ctx)

	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	g.Go(func() error {
		return copyDirection(target, client)
	})
	g.Go(func() error {
		return copyDirection(client, target)
	})

	return g.Wait()
}

// copyDirection streams src to dst until EOF or error. EOF becomes a
// write-side shutdown of dst so its peer observes end-of-stream after the
// buffered bytes are delivered.
func copyDirection(dst, src net.Conn) error {
	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)

	_, err := io.CopyBuffer(dst, src, *buf)
	if err != nil {
		return err
	}

	if cw, ok := dst.(CloseWriter); ok {
		_ = cw.CloseWrite()
	}
	return nil
}
