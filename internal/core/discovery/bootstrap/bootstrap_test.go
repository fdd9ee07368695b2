package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

var errDial = errors.New("dial failed")

type fakeConnector struct {
	mu        sync.Mutex
	failUntil int
	attempts  int
	connected []types.PeerID
}

func (f *fakeConnector) Connect(_ context.Context, id types.PeerID, _ []multiaddr.Multiaddress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failUntil {
		return errDial
	}
	f.connected = append(f.connected, id)
	return nil
}

func testPeer(b byte) Peer {
	var id types.PeerID
	id[0] = b
	return Peer{ID: id, Addrs: []multiaddr.Multiaddress{multiaddr.MustParse("/ip4/127.0.0.1/tcp/4001")}}
}

func TestBootstrapper_ConnectsEventuallyAfterFailures(t *testing.T) {
	conn := &fakeConnector{failUntil: 2}
	b := New(conn, []Peer{testPeer(1)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop()

	require.Eventually(t, func() bool {
		return b.ConnectedCount() == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestBootstrapper_SkipsPeerWithNoAddresses(t *testing.T) {
	conn := &fakeConnector{}
	b := New(conn, []Peer{{ID: testPeer(1).ID}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, b.ConnectedCount())
}

func TestBootstrapper_StopCancelsRetryLoops(t *testing.T) {
	conn := &fakeConnector{failUntil: 1000}
	b := New(conn, []Peer{testPeer(1)})

	ctx := context.Background()
	b.Start(ctx)
	b.Stop()

	time.Sleep(10 * time.Millisecond)
	before := conn.attempts
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, before, conn.attempts)
}
