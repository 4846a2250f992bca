package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Server represents the evo-sim backend server.
type Server struct {
	Spec Spec

	// ID identifies this server run in logs and handshakes.
	ID string

	// Stats counts sessions and echoed traffic across the server.
	Stats *Stats

	// TCP listener for echo sessions
	tcpListener *TCPListener
}

// New creates a new Server instance.
func New(spec *Spec) *Server {
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel(),
		}))
	}
	if spec.Config == nil {
		spec.Config = DefaultConfig()
	}

	return &Server{
		Spec:  *spec,
		ID:    uuid.NewString(),
		Stats: &Stats{},
	}
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// StartTCP starts the TCP listener on the given address. An empty addr
// falls back to the configured listen address.
// The listener runs in a separate goroutine.
func (s *Server) StartTCP(addr string) error {
	if s.tcpListener != nil {
		return fmt.Errorf("TCP listener already running")
	}
	if addr == "" {
		addr = s.Spec.Config.Listen
	}

	listener, err := NewTCPListener(addr, s)
	if err != nil {
		return err
	}

	s.tcpListener = listener

	go func() {
		if err := listener.Serve(); err != nil {
			s.Spec.Log.Error("TCP listener error", "error", err)
		}
	}()

	return nil
}

// StopTCP stops the TCP listener.
func (s *Server) StopTCP() error {
	if s.tcpListener == nil {
		return nil
	}

	err := s.tcpListener.Close()
	s.tcpListener = nil
	return err
}

// TCPAddr returns the TCP listener's address, or "" if not running.
func (s *Server) TCPAddr() string {
	if s.tcpListener == nil {
		return ""
	}
	return s.tcpListener.Addr().String()
}

// SessionCount returns the number of active sessions, or 0 if the
// listener is not running.
func (s *Server) SessionCount() int {
	if s.tcpListener == nil {
		return 0
	}
	return s.tcpListener.SessionCount()
}
