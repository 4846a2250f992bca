package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// TCPListener manages TCP connections for the echo service.
type TCPListener struct {
	listener net.Listener
	server   *Server

	// Session management
	sessions   map[string]*Session
	sessionsMu sync.RWMutex
	sessionSeq atomic.Int64

	// Bounds concurrent sessions; nil when unbounded.
	slots chan struct{}

	// Shutdown
	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewTCPListener creates a new TCP listener bound to addr.
func NewTCPListener(addr string, server *Server) (*TCPListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	var slots chan struct{}
	if n := server.Spec.Config.MaxSessions; n > 0 {
		slots = make(chan struct{}, n)
	}

	return &TCPListener{
		listener: listener,
		server:   server,
		sessions: make(map[string]*Session),
		slots:    slots,
		done:     make(chan struct{}),
	}, nil
}

// Addr returns the listener's network address.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections and runs an echo session for each one.
// A session slot is acquired before each Accept, so with MaxSessions 1
// the next connection is not accepted until the current session has
// fully ended; the kernel queues waiting connections meanwhile.
// Blocks until Close is called or an error occurs.
func (l *TCPListener) Serve() error {
	l.server.Spec.Log.Info("server started, waiting for connections",
		"addr", l.listener.Addr().String(), "id", l.server.ID)

	for {
		if !l.acquireSlot() {
			return nil // Closed while waiting for a slot
		}

		conn, err := l.listener.Accept()
		if err != nil {
			l.releaseSlot()
			if l.closed.Load() {
				return nil // Normal shutdown
			}
			l.server.Spec.Log.Error("accept error", "error", err)
			continue
		}

		l.wg.Add(1)
		go l.handleConnection(conn)
	}
}

// handleConnection creates and runs a session for the connection.
func (l *TCPListener) handleConnection(conn net.Conn) {
	defer l.wg.Done()
	defer l.releaseSlot()

	// Generate session ID
	seq := l.sessionSeq.Add(1)
	sessionID := fmt.Sprintf("tcp-%d", seq)

	l.server.Spec.Log.Info("connection accepted", "session", sessionID, "remote", conn.RemoteAddr().String())

	// Create session
	session := NewSession(sessionID, conn, &SessionConfig{
		BufferSize: l.server.Spec.Config.BufferSize,
		Log:        l.server.Spec.Log,
		Stats:      l.server.Stats,
	})

	// Track session
	l.sessionsMu.Lock()
	l.sessions[sessionID] = session
	l.sessionsMu.Unlock()

	// Run session. A session error ends this session only; the listener
	// keeps accepting.
	err := session.Run()
	if err != nil {
		l.server.Spec.Log.Error("session error", "session", sessionID, "error", err)
	}

	// Remove session
	l.sessionsMu.Lock()
	delete(l.sessions, sessionID)
	l.sessionsMu.Unlock()

	chunks, bytes := session.Echoed()
	l.server.Spec.Log.Debug("session ended", "session", sessionID, "chunks", chunks, "bytes", bytes)
}

// acquireSlot blocks until a session slot is free. Returns false if the
// listener was closed while waiting.
func (l *TCPListener) acquireSlot() bool {
	if l.slots == nil {
		return true
	}
	select {
	case l.slots <- struct{}{}:
		return true
	case <-l.done:
		return false
	}
}

func (l *TCPListener) releaseSlot() {
	if l.slots == nil {
		return
	}
	<-l.slots
}

// Close shuts down the listener and all sessions.
func (l *TCPListener) Close() error {
	if l.closed.Swap(true) {
		return nil // Already closed
	}

	close(l.done)

	// Close listener to stop accepting new connections
	if err := l.listener.Close(); err != nil {
		l.server.Spec.Log.Error("error closing listener", "error", err)
	}

	// Close all active sessions
	l.sessionsMu.RLock()
	for _, session := range l.sessions {
		session.Close()
	}
	l.sessionsMu.RUnlock()

	// Wait for all sessions to complete
	l.wg.Wait()

	l.server.Spec.Log.Info("server stopped")
	return nil
}

// SessionCount returns the number of active sessions.
func (l *TCPListener) SessionCount() int {
	l.sessionsMu.RLock()
	defer l.sessionsMu.RUnlock()
	return len(l.sessions)
}
