package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeConnClient builds a *client with no real websocket connection,
// suitable only for exercising hub registry behavior in-process; its
// writer/reader loops are never started.
func newFakeConnClient(h *Hub) *client {
	c := &client{
		hub:      h,
		outbound: make(chan []byte, outboundQueueSize),
		done:     make(chan struct{}),
	}
	c.label.Store("")
	return c
}

func TestHub_RegisterDisplacesPriorClientUnderSameLabel(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	first := newFakeConnClient(h)
	h.register("alice", first)
	h.sync()

	second := newFakeConnClient(h)
	h.register("alice", second)
	h.sync()

	assert.Equal(t, int32(stateTerminated), first.state.Load())
}

func TestHub_RelayDropsSilentlyWhenTargetUnregistered(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	h.relay(FrameOffer, &RelayPayload{From: "alice", To: "bob", SDP: "x"})
	h.sync() // no panic: success
}

func TestHub_RelayForwardsToRegisteredTarget(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	bob := newFakeConnClient(h)
	h.register("bob", bob)
	h.sync()

	h.relay(FrameOffer, &RelayPayload{From: "alice", To: "bob", SDP: "hello"})

	select {
	case data := <-bob.outbound:
		frame, err := decodeFrame(data)
		require.NoError(t, err)
		assert.Equal(t, FrameOffer, frame.Type)
	case <-time.After(time.Second):
		t.Fatal("bob never received the relayed offer")
	}
}
