package controller

import (
	"github.com/thenervelab/hippius-libp2p/internal/core/peerstore"
	"github.com/thenervelab/hippius-libp2p/internal/core/upgrader"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// event is the tagged union the Controller loop switches on. Each
// sub-behavior (transport, discovery, pubsub) emits its own event
// variant into the shared channel rather than calling into the
// Controller directly, so the loop is the only place state mutates.
type event interface{ isEvent() }

type connEstablished struct {
	peer   types.PeerID
	conn   *upgrader.UpgradedConn
	addr   multiaddr.Multiaddress
	source peerstore.Source
}

func (connEstablished) isEvent() {}

type connClosed struct {
	peer types.PeerID
}

func (connClosed) isEvent() {}

type peerDiscovered struct {
	peer   types.PeerID
	addrs  []multiaddr.Multiaddress
	source peerstore.Source
}

func (peerDiscovered) isEvent() {}

type envelopeReceived struct {
	from types.PeerID
	data []byte
}

func (envelopeReceived) isEvent() {}
