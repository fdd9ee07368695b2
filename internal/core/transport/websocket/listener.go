package websocket

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

// Listener accepts inbound WebSocket upgrades and hands back net.Conn
// values through Accept, same shape as a plain net.Listener even though
// the real work happens inside an http.Server.
type Listener struct {
	netListener net.Listener
	transport   *Transport
	server      *http.Server

	accepted chan net.Conn
	closed   atomic.Bool
}

func newListener(ln net.Listener, t *Transport) *Listener {
	l := &Listener{
		netListener: ln,
		transport:   t,
		accepted:    make(chan net.Conn, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/p2p", l.handleUpgrade)
	l.server = &http.Server{Handler: mux}
	return l
}

func (l *Listener) serve() {
	_ = l.server.Serve(l.netListener)
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if l.closed.Load() {
		http.Error(w, "listener closed", http.StatusServiceUnavailable)
		return
	}
	ws, err := l.transport.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if l.closed.Load() {
		_ = ws.Close()
		return
	}
	select {
	case l.accepted <- newConn(ws):
	default:
		_ = ws.Close()
	}
}

// Accept blocks until an inbound connection has completed its WebSocket
// handshake.
func (l *Listener) Accept() (net.Conn, error) {
	c, ok := <-l.accepted
	if !ok {
		return nil, fmt.Errorf("websocket: listener closed")
	}
	return c, nil
}

// Addr returns the listener's bound address as a /ws-suffixed Multiaddress.
func (l *Listener) Addr() multiaddr.Multiaddress {
	tcpAddr := l.netListener.Addr().(*net.TCPAddr)
	network := "ip4"
	if tcpAddr.IP.To4() == nil {
		network = "ip6"
	}
	return multiaddr.Multiaddress(fmt.Sprintf("/%s/%s/tcp/%d/ws", network, tcpAddr.IP.String(), tcpAddr.Port))
}

// Close stops the HTTP server and the underlying listener.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.transport.removeListener(l.netListener.Addr().String())
	close(l.accepted)
	return l.server.Close()
}
