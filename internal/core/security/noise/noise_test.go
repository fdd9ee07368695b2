package noise

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/internal/core/identity"
)

func TestHandshake_BothSidesAgreeOnRemotePeerAndExchangeData(t *testing.T) {
	clientID, err := identity.New()
	require.NoError(t, err)
	serverID, err := identity.New()
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()

	type result struct {
		conn *SecureConn
		err  error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		c, err := HandshakeOutbound(clientConn, clientID)
		clientCh <- result{c, err}
	}()
	go func() {
		c, err := HandshakeInbound(serverConn, serverID)
		serverCh <- result{c, err}
	}()

	clientRes := <-clientCh
	serverRes := <-serverCh
	require.NoError(t, clientRes.err)
	require.NoError(t, serverRes.err)

	require.Equal(t, serverID.ID(), clientRes.conn.RemotePeer())
	require.Equal(t, clientID.ID(), serverRes.conn.RemotePeer())

	writeDone := make(chan error, 1)
	go func() {
		_, err := clientRes.conn.Write([]byte("hello"))
		writeDone <- err
	}()

	buf := make([]byte, 16)
	n, err := serverRes.conn.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-writeDone)
	require.Equal(t, "hello", string(buf[:n]))
}
