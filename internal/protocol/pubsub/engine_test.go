package pubsub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

type recordingSender struct {
	mu  sync.Mutex
	out map[types.PeerID][][]byte
}

func newRecordingSender() *recordingSender {
	return &recordingSender{out: make(map[types.PeerID][][]byte)}
}

func (s *recordingSender) SendEnvelope(peer types.PeerID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out[peer] = append(s.out[peer], data)
	return nil
}

func (s *recordingSender) countFor(peer types.PeerID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.out[peer])
}

func mustPeerID(t *testing.T, b byte) types.PeerID {
	var raw [32]byte
	raw[0] = b
	id, err := types.PeerIDFromBytes(raw[:])
	require.NoError(t, err)
	return id
}

func TestPublish_FailsWithoutSubscribersOrMeshPeers(t *testing.T) {
	local := mustPeerID(t, 1)
	e := New(DefaultConfig(), local, newRecordingSender(), nil)

	err := e.Publish("t1", []byte("hello"))
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestPublish_SucceedsWhenLocallySubscribed(t *testing.T) {
	local := mustPeerID(t, 1)
	e := New(DefaultConfig(), local, newRecordingSender(), nil)
	e.Subscribe("t1")

	err := e.Publish("t1", []byte("hello"))
	assert.NoError(t, err)
}

func TestPublish_RejectsOversizedPayload(t *testing.T) {
	local := mustPeerID(t, 1)
	cfg := DefaultConfig()
	cfg.MaxPayloadBytes = 4
	e := New(cfg, local, newRecordingSender(), nil)
	e.Subscribe("t1")

	err := e.Publish("t1", []byte("toolong"))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestHandleEnvelope_DuplicateSuppressed(t *testing.T) {
	local := mustPeerID(t, 1)
	remote := mustPeerID(t, 2)
	e := New(DefaultConfig(), local, newRecordingSender(), nil)
	e.Subscribe("t1")

	env := &Envelope{Topic: "t1", Payload: []byte("x"), Sender: remote, Sequence: 1}
	data := encodeEnvelope(env)

	delivered := 0
	deliver := func(*Envelope) { delivered++ }

	e.HandleEnvelope(remote, data, deliver)
	e.HandleEnvelope(remote, data, deliver)

	assert.Equal(t, 1, delivered)
}

func TestUnsubscribe_ClearsMeshMembership(t *testing.T) {
	local := mustPeerID(t, 1)
	peer := mustPeerID(t, 2)
	e := New(DefaultConfig(), local, newRecordingSender(), nil)
	e.Subscribe("t1")
	e.mesh.Add("t1", peer)
	require.True(t, e.mesh.Has("t1", peer))

	e.Unsubscribe("t1")

	assert.False(t, e.mesh.Has("t1", peer))
	assert.False(t, e.IsSubscribed("t1"))
}

func TestAddPeerInterest_GraftsUpToDegree(t *testing.T) {
	local := mustPeerID(t, 1)
	e := New(DefaultConfig(), local, newRecordingSender(), nil)
	e.Subscribe("t1")

	for i := byte(2); i < 2+byte(e.cfg.D+2); i++ {
		e.AddPeerInterest("t1", mustPeerID(t, i))
	}

	assert.LessOrEqual(t, e.mesh.Count("t1"), e.cfg.Dhi)
	assert.GreaterOrEqual(t, e.mesh.Count("t1"), e.cfg.D)
}
