package pubsub

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// perSenderWindow is the minimum number of (sender, sequence) entries
// retained before the oldest is evicted, per spec's ≥1024-per-sender
// duplicate suppression window. A single shared LRU sized as a
// multiple of an expected peer count approximates a per-sender window
// without one cache per peer.
const perSenderWindow = 1024

// dedup suppresses redelivery of a message already seen by
// (sender, sequence) identity.
type dedup struct {
	seen *lru.Cache[senderSeqKey, struct{}]
}

func newDedup(expectedPeers int) *dedup {
	if expectedPeers < 1 {
		expectedPeers = 1
	}
	cache, err := lru.New[senderSeqKey, struct{}](perSenderWindow * expectedPeers)
	if err != nil {
		// Only size <= 0 causes an error, and we just clamped it above.
		panic(err)
	}
	return &dedup{seen: cache}
}

// Seen reports whether the envelope has already been observed, and
// records it as seen for future calls.
func (d *dedup) Seen(e *Envelope) bool {
	k := keyOf(e)
	if d.seen.Contains(k) {
		return true
	}
	d.seen.Add(k, struct{}{})
	return false
}
