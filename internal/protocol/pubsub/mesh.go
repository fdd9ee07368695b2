package pubsub

import (
	"math/rand"
	"sync"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// meshPeers tracks, per topic, the small set of peers a node forwards
// messages to eagerly, bounded between Dlo and Dhi around a target
// degree D.
type meshPeers struct {
	mu    sync.RWMutex
	peers map[types.Topic]map[types.PeerID]bool
	d     int
	dlo   int
	dhi   int
}

func newMeshPeers(d, dlo, dhi int) *meshPeers {
	return &meshPeers{
		peers: make(map[types.Topic]map[types.PeerID]bool),
		d:     d,
		dlo:   dlo,
		dhi:   dhi,
	}
}

// Add admits a peer to a topic's mesh, refusing once Dhi is reached.
func (mp *meshPeers) Add(topic types.Topic, peer types.PeerID) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.peers[topic] == nil {
		mp.peers[topic] = make(map[types.PeerID]bool)
	}
	if len(mp.peers[topic]) >= mp.dhi {
		return false
	}
	mp.peers[topic][peer] = true
	return true
}

func (mp *meshPeers) Remove(topic types.Topic, peer types.PeerID) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.peers[topic] != nil {
		delete(mp.peers[topic], peer)
	}
}

func (mp *meshPeers) Has(topic types.Topic, peer types.PeerID) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.peers[topic] != nil && mp.peers[topic][peer]
}

func (mp *meshPeers) List(topic types.Topic) []types.PeerID {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	if mp.peers[topic] == nil {
		return nil
	}
	out := make([]types.PeerID, 0, len(mp.peers[topic]))
	for p := range mp.peers[topic] {
		out = append(out, p)
	}
	return out
}

func (mp *meshPeers) Count(topic types.Topic) int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.peers[topic])
}

func (mp *meshPeers) NeedMorePeers(topic types.Topic) bool { return mp.Count(topic) < mp.d }
func (mp *meshPeers) TooManyPeers(topic types.Topic) bool  { return mp.Count(topic) > mp.dhi }
func (mp *meshPeers) TooFewPeers(topic types.Topic) bool   { return mp.Count(topic) < mp.dlo }

// SelectPeersToGraft picks up to count candidates not already in the
// topic's mesh, chosen in random order.
func (mp *meshPeers) SelectPeersToGraft(topic types.Topic, candidates []types.PeerID, count int) []types.PeerID {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	available := make([]types.PeerID, 0, len(candidates))
	for _, p := range candidates {
		if mp.peers[topic] == nil || !mp.peers[topic][p] {
			available = append(available, p)
		}
	}
	if len(available) <= count {
		return available
	}
	rand.Shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })
	return available[:count]
}

// SelectPeersToPrune picks up to count mesh members to drop, in random order.
func (mp *meshPeers) SelectPeersToPrune(topic types.Topic, count int) []types.PeerID {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	if mp.peers[topic] == nil {
		return nil
	}
	peers := make([]types.PeerID, 0, len(mp.peers[topic]))
	for p := range mp.peers[topic] {
		peers = append(peers, p)
	}
	if len(peers) <= count {
		return peers
	}
	rand.Shuffle(len(peers), func(i, j int) { peers[i], peers[j] = peers[j], peers[i] })
	return peers[:count]
}

// AllPeers returns the union of mesh membership across every topic,
// used by the controller to exempt currently-meshed peers from idle
// eviction.
func (mp *meshPeers) AllPeers() []types.PeerID {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	seen := make(map[types.PeerID]bool)
	for _, peers := range mp.peers {
		for p := range peers {
			seen[p] = true
		}
	}
	out := make([]types.PeerID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

func (mp *meshPeers) Clear(topic types.Topic) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	delete(mp.peers, topic)
}
