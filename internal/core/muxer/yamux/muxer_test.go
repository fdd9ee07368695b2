package yamux

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_OpenAndAcceptStreamCarriesData(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	clientCh := make(chan *Session, 1)
	serverCh := make(chan *Session, 1)
	errCh := make(chan error, 2)

	go func() {
		s, err := NewOutbound(clientConn)
		if err != nil {
			errCh <- err
			return
		}
		clientCh <- s
	}()
	go func() {
		s, err := NewInbound(serverConn)
		if err != nil {
			errCh <- err
			return
		}
		serverCh <- s
	}()

	select {
	case err := <-errCh:
		t.Fatalf("session setup failed: %v", err)
	default:
	}

	client := <-clientCh
	server := <-serverCh

	acceptDone := make(chan net.Conn, 1)
	go func() {
		stream, err := server.AcceptStream()
		require.NoError(t, err)
		acceptDone <- stream
	}()

	clientStream, err := client.OpenStream()
	require.NoError(t, err)

	serverStream := <-acceptDone

	go func() {
		_, _ = clientStream.Write([]byte("ping"))
	}()

	buf := make([]byte, 4)
	n, err := serverStream.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
}
