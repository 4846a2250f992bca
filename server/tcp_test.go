package server

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestTCPListener_Echo(t *testing.T) {
	server := New(&Spec{})

	// Start TCP listener on random port
	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	addr := server.TCPAddr()
	if addr == "" {
		t.Fatal("expected TCP address")
	}
	t.Logf("TCP listener on %s", addr)

	// Connect client
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if got := string(buf[:n]); got != "hello" {
		t.Errorf("expected %q echoed back, got %q", "hello", got)
	}
}

func TestTCPListener_EchoOrder(t *testing.T) {
	server := New(&Spec{})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	conn, err := net.Dial("tcp", server.TCPAddr())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	// Each chunk comes back before the next is sent
	buf := make([]byte, 4096)
	for _, payload := range []string{"foo", "bar"} {
		if _, err := conn.Write([]byte(payload)); err != nil {
			t.Fatalf("failed to write %q: %v", payload, err)
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("failed to read echo of %q: %v", payload, err)
		}
		if got := string(buf[:n]); got != payload {
			t.Errorf("expected %q echoed back, got %q", payload, got)
		}
	}
}

func TestTCPListener_SequentialClients(t *testing.T) {
	server := New(&Spec{})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	addr := server.TCPAddr()
	buf := make([]byte, 4096)

	// First client echoes and disconnects
	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect first client: %v", err)
	}
	if _, err := first.Write([]byte("foo")); err != nil {
		t.Fatalf("first client failed to write: %v", err)
	}
	first.SetReadDeadline(time.Now().Add(time.Second))
	n, err := first.Read(buf)
	if err != nil {
		t.Fatalf("first client failed to read: %v", err)
	}
	if got := string(buf[:n]); got != "foo" {
		t.Errorf("expected %q echoed back, got %q", "foo", got)
	}
	first.Close()

	// Second client gets its own echo, nothing from the first session
	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect second client: %v", err)
	}
	defer second.Close()

	if _, err := second.Write([]byte("bar")); err != nil {
		t.Fatalf("second client failed to write: %v", err)
	}
	second.SetReadDeadline(time.Now().Add(time.Second))
	n, err = second.Read(buf)
	if err != nil {
		t.Fatalf("second client failed to read: %v", err)
	}
	if got := string(buf[:n]); got != "bar" {
		t.Errorf("expected %q echoed back, got %q", "bar", got)
	}
}

func TestTCPListener_LargePayload(t *testing.T) {
	server := New(&Spec{})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	conn, err := net.Dial("tcp", server.TCPAddr())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	// Four chunks at the default buffer size
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, len(payload))
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("failed to read echo: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("echo differs from payload")
	}
}

func TestTCPListener_ClientClosesWithoutSending(t *testing.T) {
	server := New(&Spec{})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	addr := server.TCPAddr()

	// A client that connects and leaves without a byte
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	conn.Close()

	// The server keeps serving
	conn2, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect again: %v", err)
	}
	defer conn2.Close()

	if _, err := conn2.Write([]byte("ping")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	conn2.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 4096)
	n, err := conn2.Read(buf)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if got := string(buf[:n]); got != "ping" {
		t.Errorf("expected %q echoed back, got %q", "ping", got)
	}
}

func TestTCPListener_SequentialService(t *testing.T) {
	// MaxSessions defaults to 1: one session at a time, in accept order
	server := New(&Spec{})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	addr := server.TCPAddr()

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect first client: %v", err)
	}
	defer first.Close()

	// Make sure the first session is the one being served
	buf := make([]byte, 4096)
	if _, err := first.Write([]byte("a")); err != nil {
		t.Fatalf("first client failed to write: %v", err)
	}
	first.SetReadDeadline(time.Now().Add(time.Second))
	n, err := first.Read(buf)
	if err != nil {
		t.Fatalf("first client failed to read: %v", err)
	}
	if got := string(buf[:n]); got != "a" {
		t.Errorf("expected %q echoed back, got %q", "a", got)
	}

	// The second client connects (the kernel queues it) and sends
	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect second client: %v", err)
	}
	defer second.Close()

	if _, err := second.Write([]byte("b")); err != nil {
		t.Fatalf("second client failed to write: %v", err)
	}

	// No echo while the first session is still open
	second.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if n, err := second.Read(buf); err == nil {
		t.Fatalf("expected no echo while first session open, got %q", buf[:n])
	} else {
		var nerr net.Error
		if !errors.As(err, &nerr) || !nerr.Timeout() {
			t.Fatalf("expected read timeout, got %v", err)
		}
	}

	if got := server.SessionCount(); got != 1 {
		t.Errorf("expected 1 active session, got %d", got)
	}

	// Ending the first session lets the second one in
	first.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	n, err = second.Read(buf)
	if err != nil {
		t.Fatalf("second client failed to read after first ended: %v", err)
	}
	if got := string(buf[:n]); got != "b" {
		t.Errorf("expected %q echoed back, got %q", "b", got)
	}
}

func TestTCPListener_ConcurrentSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 3
	server := New(&Spec{Config: cfg})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	addr := server.TCPAddr()

	// Connect multiple clients
	const numClients = 3
	conns := make([]net.Conn, numClients)
	for i := 0; i < numClients; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("failed to connect client %d: %v", i, err)
		}
		conns[i] = conn
		defer conn.Close()
	}

	// Each client gets its own echo back
	for i, conn := range conns {
		payload := string(rune('a' + i))
		if _, err := conn.Write([]byte(payload)); err != nil {
			t.Fatalf("client %d failed to write: %v", i, err)
		}
	}
	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("client %d failed to read: %v", i, err)
		}
		if got, want := string(buf[:n]), string(rune('a'+i)); got != want {
			t.Errorf("client %d: expected %q, got %q", i, want, got)
		}
	}

	// Give time for sessions to register
	time.Sleep(50 * time.Millisecond)

	if server.SessionCount() != numClients {
		t.Errorf("expected %d sessions, got %d", numClients, server.SessionCount())
	}

	// Close all connections
	for _, conn := range conns {
		conn.Close()
	}

	// Wait for sessions to end
	time.Sleep(100 * time.Millisecond)

	if server.SessionCount() != 0 {
		t.Errorf("expected 0 sessions after close, got %d", server.SessionCount())
	}
}

func TestTCPListener_SessionFaultIsolation(t *testing.T) {
	server := New(&Spec{})

	if err := server.StartTCP("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start TCP: %v", err)
	}
	defer server.StopTCP()

	addr := server.TCPAddr()

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	buf := make([]byte, 4096)
	if _, err := first.Write([]byte("x")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	first.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := first.Read(buf); err != nil {
		t.Fatalf("failed to read: %v", err)
	}

	// Abort the connection with a RST rather than a clean close
	first.(*net.TCPConn).SetLinger(0)
	first.Close()

	// The faulted session must not take the listener down
	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect after fault: %v", err)
	}
	defer second.Close()

	if _, err := second.Write([]byte("y")); err != nil {
		t.Fatalf("failed to write after fault: %v", err)
	}
	second.SetReadDeadline(time.Now().Add(time.Second))
	n, err := second.Read(buf)
	if err != nil {
		t.Fatalf("failed to read after fault: %v", err)
	}
	if got := string(buf[:n]); got != "y" {
		t.Errorf("expected %q echoed back, got %q", "y", got)
	}
}
