package tcp

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

// Listener wraps a *net.TCPListener as a transport.Listener.
type Listener struct {
	listener  *net.TCPListener
	transport *Transport
	closed    atomic.Bool
}

// Accept waits for and returns the next inbound TCP connection.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetKeepAlive(true)
	}
	return conn, nil
}

// Addr returns the listener's bound address as a Multiaddress.
func (l *Listener) Addr() multiaddr.Multiaddress {
	tcpAddr := l.listener.Addr().(*net.TCPAddr)
	network := "ip4"
	if tcpAddr.IP.To4() == nil {
		network = "ip6"
	}
	return multiaddr.Multiaddress(fmt.Sprintf("/%s/%s/tcp/%d", network, tcpAddr.IP.String(), tcpAddr.Port))
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.transport.removeListener(l.listener.Addr().String())
	return l.listener.Close()
}
