package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coretransport "github.com/thenervelab/hippius-libp2p/internal/core/transport"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

func TestDialListen_RoundTrips(t *testing.T) {
	srv := New(coretransport.DefaultDialOptions())
	defer srv.Close()

	ln, err := srv.Listen(multiaddr.MustParse("/ip4/127.0.0.1/tcp/0"))
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		defer conn.Close()
		buf := make([]byte, 5)
		_, _ = conn.Read(buf)
		close(accepted)
	}()

	cli := New(coretransport.DefaultDialOptions())
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := cli.Dial(ctx, ln.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
}

func TestCanDial_RequiresWebSocketSuffix(t *testing.T) {
	tr := New(coretransport.DefaultDialOptions())
	defer tr.Close()

	require.True(t, tr.CanDial(multiaddr.MustParse("/ip4/1.2.3.4/tcp/4001/ws")))
	require.False(t, tr.CanDial(multiaddr.MustParse("/ip4/1.2.3.4/tcp/4001")))
}

func TestClose_RefusesFurtherDials(t *testing.T) {
	tr := New(coretransport.DefaultDialOptions())
	require.NoError(t, tr.Close())

	_, err := tr.Dial(context.Background(), multiaddr.MustParse("/ip4/127.0.0.1/tcp/4001/ws"))
	require.ErrorIs(t, err, coretransport.ErrTransportRefused)
}
