// Package tcp implements the plain-TCP transport: direct net.Dialer /
// net.Listener wrapping. TCP provides no native multiplexing; the
// upgrader layers security and a stream muxer on top of whatever this
// package hands back.
package tcp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	coretransport "github.com/thenervelab/hippius-libp2p/internal/core/transport"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

// Transport is the TCP implementation of transport.Transport.
type Transport struct {
	opts coretransport.DialOptions

	listenersMu sync.RWMutex
	listeners   map[string]*Listener

	connsMu sync.RWMutex
	conns   map[string]net.Conn

	closed atomic.Bool
}

var _ coretransport.Transport = (*Transport)(nil)

// New creates a TCP transport using opts for outbound dials.
func New(opts coretransport.DialOptions) *Transport {
	return &Transport{
		opts:      opts,
		listeners: make(map[string]*Listener),
		conns:     make(map[string]net.Conn),
	}
}

// Dial opens a TCP connection to addr.
func (t *Transport) Dial(ctx context.Context, addr multiaddr.Multiaddress) (net.Conn, error) {
	if t.closed.Load() {
		return nil, coretransport.ErrTransportRefused
	}

	dialAddr := addr.NetDialString()
	if dialAddr == "" {
		return nil, fmt.Errorf("tcp: invalid address %q", addr)
	}

	dialer := &net.Dialer{
		Timeout:   t.opts.Timeout,
		KeepAlive: t.opts.KeepAlive,
	}

	conn, err := dialer.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", dialAddr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if t.opts.NoDelay {
			_ = tcpConn.SetNoDelay(true)
		}
		if t.opts.KeepAlive > 0 {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(t.opts.KeepAlive)
		}
	}

	t.connsMu.Lock()
	t.conns[conn.RemoteAddr().String()] = conn
	t.connsMu.Unlock()

	return conn, nil
}

// Listen starts accepting TCP connections on addr.
func (t *Transport) Listen(addr multiaddr.Multiaddress) (coretransport.Listener, error) {
	if t.closed.Load() {
		return nil, coretransport.ErrTransportRefused
	}

	listenAddr := addr.NetDialString()
	if listenAddr == "" {
		// "/ip4/0.0.0.0/tcp/4001" style addresses resolve via NetDialString too,
		// since 0.0.0.0 parses as a valid IP.
		return nil, fmt.Errorf("tcp: invalid listen address %q", addr)
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", listenAddr, err)
	}

	l := &Listener{listener: ln.(*net.TCPListener), transport: t}
	t.listenersMu.Lock()
	t.listeners[ln.Addr().String()] = l
	t.listenersMu.Unlock()

	return l, nil
}

// Protocols returns the network identifiers this transport handles.
func (t *Transport) Protocols() []string {
	return []string{"tcp", "tcp4", "tcp6"}
}

// CanDial reports whether addr names a bare /tcp/ address, i.e. not
// suffixed with /ws (that belongs to the websocket transport).
func (t *Transport) CanDial(addr multiaddr.Multiaddress) bool {
	if t.closed.Load() {
		return false
	}
	if addr.IsWebSocket() {
		return false
	}
	return strings.Contains(addr.String(), "/tcp/")
}

// Close shuts down every listener and connection this transport opened.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	var lastErr error

	t.listenersMu.Lock()
	for _, l := range t.listeners {
		if err := l.listener.Close(); err != nil {
			lastErr = err
		}
	}
	t.listeners = make(map[string]*Listener)
	t.listenersMu.Unlock()

	t.connsMu.Lock()
	for _, c := range t.conns {
		if err := c.Close(); err != nil {
			lastErr = err
		}
	}
	t.conns = make(map[string]net.Conn)
	t.connsMu.Unlock()

	return lastErr
}

func (t *Transport) removeConn(key string) {
	t.connsMu.Lock()
	delete(t.conns, key)
	t.connsMu.Unlock()
}

func (t *Transport) removeListener(key string) {
	t.listenersMu.Lock()
	delete(t.listeners, key)
	t.listenersMu.Unlock()
}
