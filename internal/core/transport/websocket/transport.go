package websocket

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	coretransport "github.com/thenervelab/hippius-libp2p/internal/core/transport"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

// Transport is the WebSocket implementation of transport.Transport.
type Transport struct {
	opts     coretransport.DialOptions
	dialer   websocket.Dialer
	upgrader websocket.Upgrader

	listenersMu sync.RWMutex
	listeners   map[string]*Listener

	closed atomic.Bool
}

var _ coretransport.Transport = (*Transport)(nil)

// New creates a WebSocket transport.
func New(opts coretransport.DialOptions) *Transport {
	return &Transport{
		opts: opts,
		dialer: websocket.Dialer{
			HandshakeTimeout: opts.Timeout,
		},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		listeners: make(map[string]*Listener),
	}
}

// Dial connects to a /ws-suffixed multiaddress over ws://host:port/p2p.
func (t *Transport) Dial(ctx context.Context, addr multiaddr.Multiaddress) (net.Conn, error) {
	if t.closed.Load() {
		return nil, coretransport.ErrTransportRefused
	}

	url := fmt.Sprintf("ws://%s/p2p", addr.NetDialString())
	ws, _, err := t.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", url, err)
	}
	return newConn(ws), nil
}

// Listen starts an HTTP server accepting WebSocket upgrades on addr.
func (t *Transport) Listen(addr multiaddr.Multiaddress) (coretransport.Listener, error) {
	if t.closed.Load() {
		return nil, coretransport.ErrTransportRefused
	}

	listenAddr := addr.NetDialString()
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("websocket: listen %s: %w", listenAddr, err)
	}

	l := newListener(ln, t)
	t.listenersMu.Lock()
	t.listeners[ln.Addr().String()] = l
	t.listenersMu.Unlock()

	go l.serve()

	return l, nil
}

// Protocols returns the network identifiers this transport handles.
func (t *Transport) Protocols() []string {
	return []string{"ws"}
}

// CanDial reports whether addr carries a trailing /ws component.
func (t *Transport) CanDial(addr multiaddr.Multiaddress) bool {
	if t.closed.Load() {
		return false
	}
	return strings.Contains(addr.String(), "/tcp/") && addr.IsWebSocket()
}

// Close shuts down every listener this transport opened.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()
	var lastErr error
	for _, l := range t.listeners {
		if err := l.Close(); err != nil {
			lastErr = err
		}
	}
	t.listeners = make(map[string]*Listener)
	return lastErr
}

func (t *Transport) removeListener(key string) {
	t.listenersMu.Lock()
	delete(t.listeners, key)
	t.listenersMu.Unlock()
}
