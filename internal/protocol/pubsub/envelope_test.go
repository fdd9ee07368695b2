package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

func TestEncodeDecodeEnvelope_RoundTrips(t *testing.T) {
	env := &Envelope{
		Topic:    types.Topic("announcements"),
		Payload:  []byte("hello mesh"),
		Sender:   peerAt(42),
		Sequence: 7,
	}

	decoded, err := decodeEnvelope(encodeEnvelope(env))
	require.NoError(t, err)
	require.Equal(t, env.Topic, decoded.Topic)
	require.Equal(t, env.Payload, decoded.Payload)
	require.Equal(t, env.Sender, decoded.Sender)
	require.Equal(t, env.Sequence, decoded.Sequence)
}

func TestDecodeEnvelope_RejectsTruncatedBuffer(t *testing.T) {
	env := &Envelope{Topic: types.Topic("t"), Payload: []byte("x"), Sender: peerAt(1), Sequence: 1}
	data := encodeEnvelope(env)

	_, err := decodeEnvelope(data[:len(data)-5])
	require.Error(t, err)
}

func TestEncodeDecodeEnvelope_EmptyTopicAndPayload(t *testing.T) {
	env := &Envelope{Sender: peerAt(3), Sequence: 1}
	decoded, err := decodeEnvelope(encodeEnvelope(env))
	require.NoError(t, err)
	require.True(t, decoded.Topic.IsEmpty())
	require.Empty(t, decoded.Payload)
}
