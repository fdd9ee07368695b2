package peerstore

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

func testPeerID(b byte) types.PeerID {
	var id types.PeerID
	id[0] = b
	return id
}

func TestStore_UpsertThenGet(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, time.Minute)
	id := testPeerID(1)

	s.Upsert(id, nil, SourceMDNS)

	rec, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, SourceMDNS, rec.Source)
	require.Equal(t, mock.Now(), rec.LastSeen)
}

func TestStore_UpsertPreservesAddrsWhenNoneGiven(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, time.Minute)
	id := testPeerID(1)
	addr := multiaddr.MustParse("/ip4/127.0.0.1/tcp/4001")

	s.Upsert(id, []multiaddr.Multiaddress{addr}, SourceDial)
	s.Upsert(id, nil, SourceDial)

	rec, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, []multiaddr.Multiaddress{addr}, rec.Addrs)
}

func TestStore_EvictIdleRemovesStalePeersOnly(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, time.Minute)

	stale := testPeerID(1)
	fresh := testPeerID(2)

	s.Upsert(stale, nil, SourceMDNS)
	mock.Add(30 * time.Second)
	s.Upsert(fresh, nil, SourceMDNS)
	mock.Add(40 * time.Second)

	evicted := s.EvictIdle()
	require.ElementsMatch(t, []types.PeerID{stale}, evicted)

	_, staleOk := s.Get(stale)
	require.False(t, staleOk)
	_, freshOk := s.Get(fresh)
	require.True(t, freshOk)
}

func TestStore_SubscribedPeerExemptFromEviction(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, time.Minute)
	id := testPeerID(1)

	s.Upsert(id, nil, SourceDial)
	s.MarkSubscribed(id, true)
	mock.Add(time.Hour)

	require.Empty(t, s.EvictIdle())
	require.Equal(t, 1, s.Count())
}

func TestStore_RemoveDeletesRecord(t *testing.T) {
	s := New(clock.NewMock(), time.Minute)
	id := testPeerID(1)
	s.Upsert(id, nil, SourceInbound)

	s.Remove(id)

	_, ok := s.Get(id)
	require.False(t, ok)
}
