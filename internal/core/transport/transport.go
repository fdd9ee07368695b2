// Package transport defines the Transport abstraction the node dials and
// listens through, and the "either-of" composite that picks TCP or
// WebSocket based on the dialed multiaddress.
package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

// ErrTransportRefused is returned when a dial or listen is attempted on a
// closed transport.
var ErrTransportRefused = errors.New("transport: refused, transport is closed")

// ErrNoTransportForAddr is returned when no registered transport can
// dial a given multiaddress.
var ErrNoTransportForAddr = errors.New("transport: no transport can dial this address")

// Transport dials and listens for raw (not yet secured or multiplexed)
// connections over one network protocol.
type Transport interface {
	Dial(ctx context.Context, addr multiaddr.Multiaddress) (net.Conn, error)
	Listen(addr multiaddr.Multiaddress) (Listener, error)
	CanDial(addr multiaddr.Multiaddress) bool
	Protocols() []string
	Close() error
}

// Listener accepts inbound raw connections.
type Listener interface {
	Accept() (net.Conn, error)
	Addr() multiaddr.Multiaddress
	Close() error
}

// DialOptions configures an outbound dial.
type DialOptions struct {
	Timeout   time.Duration
	KeepAlive time.Duration
	NoDelay   bool
}

// DefaultDialOptions returns sane defaults: 30s timeout, 30s keepalive,
// Nagle's algorithm disabled.
func DefaultDialOptions() DialOptions {
	return DialOptions{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		NoDelay:   true,
	}
}
