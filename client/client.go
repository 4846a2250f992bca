// Package client provides a client for the evo-sim backend server.
//
// The exchange is strictly send-then-receive: whatever bytes the client
// sends come back unchanged, chunk by chunk, until the client closes
// its side of the connection.
package client

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// Client is a connection to the backend server.
// Methods are not safe for concurrent use.
type Client struct {
	conn net.Conn
	log  *slog.Logger
}

// Config holds optional client configuration.
type Config struct {
	DialTimeout time.Duration // default 5s
	Log         *slog.Logger  // optional
}

// Dial connects to the backend server at addr with default configuration.
func Dial(addr string) (*Client, error) {
	return DialConfig(addr, &Config{})
}

// DialTimeout connects like Dial with an explicit dial timeout.
func DialTimeout(addr string, timeout time.Duration) (*Client, error) {
	return DialConfig(addr, &Config{DialTimeout: timeout})
}

// DialConfig connects to the backend server at addr.
func DialConfig(addr string, cfg *Config) (*Client, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Client{
		conn: conn,
		log:  log.With("component", "client"),
	}
	c.log.Debug("connected", "addr", addr)
	return c, nil
}

// Send writes data to the server, blocking until fully sent.
func (c *Client) Send(data []byte) error {
	for len(data) > 0 {
		n, err := c.conn.Write(data)
		if err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// Recv reads one chunk of at most max bytes from the server.
// If data arrives together with an error, the data is returned and the
// error surfaces on the next call.
func (c *Client) Recv(max int) ([]byte, error) {
	buf := make([]byte, max)
	n, err := c.conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return buf[:0], nil
}

// Echo sends data and reads back the server's echo of exactly len(data)
// bytes. The echo may arrive split across several chunks; Echo reassembles
// them.
func (c *Client) Echo(data []byte) ([]byte, error) {
	if err := c.Send(data); err != nil {
		return nil, err
	}
	buf := make([]byte, len(data))
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return nil, fmt.Errorf("echo read failed: %w", err)
	}
	return buf, nil
}

// CloseWrite half-closes the sending side, telling the server this client
// is done. The connection can still be read from afterwards.
func (c *Client) CloseWrite() error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	return c.conn.Close()
}

// SetDeadline sets read and write deadlines on the underlying connection.
func (c *Client) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
