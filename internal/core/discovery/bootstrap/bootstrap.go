// Package bootstrap connects a node to a fixed list of well-known
// bootnodes at startup, retrying with exponential backoff on failure
// until a connection succeeds.
package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

var log = logger.Named("discovery.bootstrap")

const (
	initialBackoff = time.Second
	backoffFactor  = 2.0
	maxBackoff     = 60 * time.Second
)

// Peer is a single bootnode entry.
type Peer struct {
	ID    types.PeerID
	Addrs []multiaddr.Multiaddress
}

// Connector dials a peer at a set of known addresses. The node
// controller supplies this so the bootstrap loop never has to know
// about transports or the upgrader directly.
type Connector interface {
	Connect(ctx context.Context, id types.PeerID, addrs []multiaddr.Multiaddress) error
}

type peerState struct {
	peer      Peer
	connected bool
	backoff   time.Duration
	attempts  int
}

// Bootstrapper dials every configured bootnode, backing off on a
// per-peer basis and retrying indefinitely until it connects.
type Bootstrapper struct {
	connector Connector

	mu    sync.Mutex
	peers map[types.PeerID]*peerState

	cancel context.CancelFunc
}

// New builds a bootstrapper for the given bootnode list.
func New(connector Connector, peers []Peer) *Bootstrapper {
	b := &Bootstrapper{
		connector: connector,
		peers:     make(map[types.PeerID]*peerState, len(peers)),
	}
	for _, p := range peers {
		b.peers[p.ID] = &peerState{peer: p, backoff: initialBackoff}
	}
	return b
}

// Start launches one retry loop per bootnode. It returns immediately;
// connection attempts happen in the background.
func (b *Bootstrapper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.mu.Lock()
	states := make([]*peerState, 0, len(b.peers))
	for _, st := range b.peers {
		states = append(states, st)
	}
	b.mu.Unlock()

	for _, st := range states {
		go b.retryLoop(ctx, st)
	}
}

// Stop halts all retry loops.
func (b *Bootstrapper) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bootstrapper) retryLoop(ctx context.Context, st *peerState) {
	for {
		if ctx.Err() != nil {
			return
		}
		if len(st.peer.Addrs) == 0 {
			log.Warnw("bootnode has no addresses", "peer", st.peer.ID.ShortString())
			return
		}

		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := b.connector.Connect(dialCtx, st.peer.ID, st.peer.Addrs)
		cancel()

		if err == nil {
			b.mu.Lock()
			st.connected = true
			st.backoff = initialBackoff
			st.attempts = 0
			b.mu.Unlock()
			log.Infow("connected to bootnode", "peer", st.peer.ID.ShortString())
			return
		}

		b.mu.Lock()
		st.attempts++
		wait := st.backoff
		st.backoff = time.Duration(float64(st.backoff) * backoffFactor)
		if st.backoff > maxBackoff {
			st.backoff = maxBackoff
		}
		b.mu.Unlock()

		log.Debugw("bootnode dial failed, backing off", "peer", st.peer.ID.ShortString(), "attempt", st.attempts, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// ConnectedCount reports how many bootnodes are currently connected.
func (b *Bootstrapper) ConnectedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, st := range b.peers {
		if st.connected {
			n++
		}
	}
	return n
}
