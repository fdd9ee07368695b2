package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

func peerAt(b byte) types.PeerID {
	var id types.PeerID
	id[0] = b
	return id
}

func TestMeshPeers_AddRefusesPastDhi(t *testing.T) {
	mp := newMeshPeers(2, 1, 2)
	topic := types.Topic("t")

	require.True(t, mp.Add(topic, peerAt(1)))
	require.True(t, mp.Add(topic, peerAt(2)))
	require.False(t, mp.Add(topic, peerAt(3)))
	require.Equal(t, 2, mp.Count(topic))
}

func TestMeshPeers_DegreeHelpers(t *testing.T) {
	mp := newMeshPeers(3, 1, 5)
	topic := types.Topic("t")

	require.True(t, mp.NeedMorePeers(topic))
	require.True(t, mp.TooFewPeers(topic))
	require.False(t, mp.TooManyPeers(topic))

	for i := byte(1); i <= 5; i++ {
		mp.Add(topic, peerAt(i))
	}
	require.False(t, mp.NeedMorePeers(topic))
	require.False(t, mp.TooFewPeers(topic))
	require.True(t, mp.TooManyPeers(topic))
}

func TestMeshPeers_SelectPeersToGraftExcludesExisting(t *testing.T) {
	mp := newMeshPeers(6, 4, 12)
	topic := types.Topic("t")
	mp.Add(topic, peerAt(1))

	candidates := []types.PeerID{peerAt(1), peerAt(2), peerAt(3)}
	got := mp.SelectPeersToGraft(topic, candidates, 2)

	require.Len(t, got, 2)
	for _, p := range got {
		require.NotEqual(t, peerAt(1), p)
	}
}

func TestMeshPeers_RemoveAndClear(t *testing.T) {
	mp := newMeshPeers(6, 4, 12)
	topic := types.Topic("t")
	mp.Add(topic, peerAt(1))
	mp.Add(topic, peerAt(2))

	mp.Remove(topic, peerAt(1))
	require.False(t, mp.Has(topic, peerAt(1)))
	require.True(t, mp.Has(topic, peerAt(2)))

	mp.Clear(topic)
	require.Equal(t, 0, mp.Count(topic))
}
