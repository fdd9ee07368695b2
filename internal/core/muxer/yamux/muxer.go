// Package yamux wraps hashicorp/yamux to provide the stream
// multiplexer the upgrader layers on top of a Noise-secured connection,
// so a single dialed/accepted connection can carry many concurrent
// logical streams.
package yamux

import (
	"net"

	"github.com/hashicorp/yamux"
)

// Config returns the yamux configuration used across the node: the
// library defaults, with AcceptBacklog set explicitly to 256 (the same
// value yamux's DefaultConfig uses).
func Config() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.AcceptBacklog = 256
	return cfg
}

// Session is a multiplexed connection; streams are opened and accepted
// through it independently once NewOutbound or NewInbound has set it up.
type Session struct {
	*yamux.Session
}

// NewOutbound creates the client side of a yamux session over conn.
func NewOutbound(conn net.Conn) (*Session, error) {
	s, err := yamux.Client(conn, Config())
	if err != nil {
		return nil, err
	}
	return &Session{s}, nil
}

// NewInbound creates the server side of a yamux session over conn.
func NewInbound(conn net.Conn) (*Session, error) {
	s, err := yamux.Server(conn, Config())
	if err != nil {
		return nil, err
	}
	return &Session{s}, nil
}

// OpenStream opens a new logical stream over the session.
func (s *Session) OpenStream() (net.Conn, error) {
	return s.Session.OpenStream()
}

// AcceptStream blocks until the remote opens a new logical stream.
func (s *Session) AcceptStream() (net.Conn, error) {
	return s.Session.AcceptStream()
}
