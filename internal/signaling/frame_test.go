package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrame_RegisterRoundTrips(t *testing.T) {
	data, err := encodeFrame(FrameRegister, RegisterPayload{PeerID: "alice"})
	require.NoError(t, err)

	frame, err := decodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, FrameRegister, frame.Type)

	payload, err := frame.registerPayload()
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.PeerID)
}

func TestEncodeDecodeFrame_OfferRoundTrips(t *testing.T) {
	data, err := encodeFrame(FrameOffer, RelayPayload{From: "alice", To: "bob", SDP: "v=0..."})
	require.NoError(t, err)

	frame, err := decodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, FrameOffer, frame.Type)

	payload, err := frame.relayPayload()
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.From)
	assert.Equal(t, "bob", payload.To)
	assert.Equal(t, "v=0...", payload.SDP)
}

func TestDecodeFrame_RejectsMalformedJSON(t *testing.T) {
	_, err := decodeFrame([]byte("not json"))
	assert.Error(t, err)
}
