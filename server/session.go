package server

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/evo-sim/simd/debug"
)

// Session represents one echo exchange with a client.
// It reads chunks from the connection and writes each chunk back unchanged
// until the client disconnects.
type Session struct {
	ID   string
	conn io.ReadWriteCloser
	log  *slog.Logger

	bufferSize int
	stats      *Stats

	// Echo accounting for this session
	chunks atomic.Int64
	bytes  atomic.Int64

	// Shutdown coordination
	done      chan struct{}
	closeOnce sync.Once
}

// SessionConfig contains configuration for creating a session.
type SessionConfig struct {
	BufferSize int // bytes read per chunk (default 1024)
	Log        *slog.Logger
	Stats      *Stats
}

// NewSession creates a new session for the given connection.
func NewSession(id string, conn io.ReadWriteCloser, cfg *SessionConfig) *Session {
	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		ID:         id,
		conn:       conn,
		log:        log.With("session", id),
		bufferSize: bufSize,
		stats:      cfg.Stats,
		done:       make(chan struct{}),
	}
}

// Run starts the echo loop and blocks until the client disconnects or the
// connection faults. A clean disconnect returns nil; any other read or
// write failure is returned. The connection is closed before Run returns.
func (s *Session) Run() error {
	var wg sync.WaitGroup

	// Goroutine to close the connection when done is signaled.
	// This unblocks the echo loop if it's stuck in a blocking read.
	wg.Go(func() {
		<-s.done
		s.conn.Close()
	})

	if s.stats != nil {
		s.stats.sessionStarted()
		defer s.stats.sessionEnded()
	}

	err := s.echo()

	// Signal shutdown (safe to call multiple times)
	s.closeOnce.Do(func() {
		close(s.done)
	})

	wg.Wait()

	return err
}

// Close signals the session to shut down.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.conn.Close()
}

// Echoed returns the chunks and bytes echoed so far in this session.
func (s *Session) Echoed() (chunks, bytes int64) {
	return s.chunks.Load(), s.bytes.Load()
}

// echo reads chunks of at most bufferSize bytes and writes each one back
// before the next read. Data and EOF can arrive together on the last read,
// so the chunk is always echoed before the error is inspected.
func (s *Session) echo() error {
	buf := make([]byte, s.bufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if werr := s.writeAll(buf[:n]); werr != nil {
				return fmt.Errorf("echo write error: %w", werr)
			}
			s.chunks.Add(1)
			s.bytes.Add(int64(n))
			if s.stats != nil {
				s.stats.echoed(n)
			}
			s.log.Debug("echoed chunk", "bytes", n)
			if debug.Echo() {
				s.log.Debug("chunk data", "hex", hex.EncodeToString(buf[:n]))
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Check if this is a "use of closed connection" error from shutdown
			select {
			case <-s.done:
				return nil
			default:
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

// writeAll writes p fully, retrying on short writes.
func (s *Session) writeAll(p []byte) error {
	for len(p) > 0 {
		n, err := s.conn.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
