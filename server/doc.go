// Package server implements the evo-sim backend server.
//
// The backend speaks the simulation wire protocol in its current form: a
// client sends opaque bytes and receives exactly the same bytes back, chunk
// by chunk, until it closes the connection. The server provides:
//
//   - A TCP listener with configurable address, chunk size and session limit
//   - One echo session per accepted connection
//   - Strictly sequential service by default (one session at a time, in
//     accept order), with opt-in concurrency
//   - Session-level fault isolation: a connection error ends that session
//     only, never the listener
//
// # Server
//
// Start the server with:
//
//	simd serve -addr 127.0.0.1:12345
//
// # Related Packages
//
//   - github.com/evo-sim/simd/client - Client side of the echo exchange
package server
