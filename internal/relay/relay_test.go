package relay

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"
)

// tcpPair returns the two ends of one loopback TCP connection.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	type result struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		accepted <- result{c, err}
	}()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	r := <-accepted
	if r.err != nil {
		_ = dialed.Close()
		t.Fatal(r.err)
	}

	t.Cleanup(func() {
		_ = dialed.Close()
		_ = r.conn.Close()
	})
	return dialed, r.conn
}

func TestRunRelaysBothDirections(t *testing.T) {
	clientPeer, clientConn := tcpPair(t)
	targetConn, targetPeer := tcpPair(t)

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), clientConn, targetConn, 0) }()

	if _, err := clientPeer.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(targetPeer, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("target received %q, want %q", buf, "ping")
	}

	if _, err := targetPeer.Write([]byte("pong")); err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadFull(clientPeer, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "pong" {
		t.Fatalf("client received %q, want %q", buf, "pong")
	}

	// Half-close from the client: the target sees EOF but can still send.
	_ = clientPeer.(*net.TCPConn).CloseWrite()
	if rest, err := io.ReadAll(targetPeer); err != nil || len(rest) != 0 {
		t.Fatalf("target drain got %q, err %v", rest, err)
	}

	if _, err := targetPeer.Write([]byte("late")); err != nil {
		t.Fatal(err)
	}
	late := make([]byte, 4)
	if _, err := io.ReadFull(clientPeer, late); err != nil {
		t.Fatal(err)
	}
	if string(late) != "late" {
		t.Fatalf("client received %q after half-close, want %q", late, "late")
	}

	_ = targetPeer.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after both sides finished")
	}

	if rest, err := io.ReadAll(clientPeer); err != nil || len(rest) != 0 {
		t.Fatalf("client drain got %q, err %v", rest, err)
	}
}

func TestRunLargeTransfer(t *testing.T) {
	clientPeer, clientConn := tcpPair(t)
	targetConn, targetPeer := tcpPair(t)

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), clientConn, targetConn, 0) }()

	payload := make([]byte, 1<<20)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}

	go func() {
		_, _ = clientPeer.Write(payload)
		_ = clientPeer.(*net.TCPConn).CloseWrite()
	}()

	got, err := io.ReadAll(targetPeer)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(payload) {
		t.Fatalf("relayed %d bytes, want %d", len(got), len(payload))
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("relayed bytes differ from sent bytes")
	}

	_ = targetPeer.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}
}

type halfCloseRecorder struct {
	net.Conn
	closedWrite bool
}

func (r *halfCloseRecorder) CloseWrite() error {
	r.closedWrite = true
	return nil
}

func TestRunPropagatesCloseWriteOnEOF(t *testing.T) {
	clientEnd, clientConn := net.Pipe()
	targetConn, targetEnd := net.Pipe()

	targetRec := &halfCloseRecorder{Conn: targetConn}

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), clientConn, targetRec, 0) }()

	if _, err := clientEnd.Write([]byte("only")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(targetEnd, buf); err != nil {
		t.Fatal(err)
	}

	_ = clientEnd.Close()
	_ = targetEnd.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}

	if !targetRec.closedWrite {
		t.Error("client EOF did not propagate as CloseWrite on the target")
	}
}

var errBoom = errors.New("link reset")

type readErrConn struct {
	net.Conn
}

func (c readErrConn) Read([]byte) (int, error) { return 0, errBoom }

func TestRunErrorTearsDownBothSides(t *testing.T) {
	clientEnd, clientConn := net.Pipe()
	targetConn, targetEnd := net.Pipe()
	defer clientEnd.Close()
	defer targetEnd.Close()

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), clientConn, readErrConn{targetConn}, 0) }()

	select {
	case err := <-done:
		if !errors.Is(err, errBoom) {
			t.Fatalf("Run() error = %v, want %v", err, errBoom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after transport error")
	}

	if _, err := clientEnd.Read(make([]byte, 1)); err == nil {
		t.Error("client connection still open after transport error")
	}
	if _, err := targetEnd.Read(make([]byte, 1)); err == nil {
		t.Error("target connection still open after transport error")
	}
}

func TestRunContextCancelClosesBoth(t *testing.T) {
	clientEnd, clientConn := net.Pipe()
	targetConn, targetEnd := net.Pipe()
	defer clientEnd.Close()
	defer targetEnd.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, clientConn, targetConn, 0) }()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Run() returned nil after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestRunIOTimeout(t *testing.T) {
	clientEnd, clientConn := net.Pipe()
	targetConn, targetEnd := net.Pipe()
	defer clientEnd.Close()
	defer targetEnd.Close()

	err := Run(context.Background(), clientConn, targetConn, 50*time.Millisecond)
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
}
