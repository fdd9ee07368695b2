package signaling

import (
	"context"

	"github.com/thenervelab/hippius-libp2p/internal/core/metrics"
	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
)

var log = logger.Named("signaling")

const commandQueueSize = 256

type cmdRegister struct {
	label  string
	client *client
}

type cmdUnregister struct {
	label  string
	client *client
}

type cmdRelay struct {
	frameType FrameType
	payload   *RelayPayload
}

// cmdSync is a test-only barrier: it lets a caller wait until every
// command queued before it has been processed by the hub goroutine.
type cmdSync struct {
	done chan struct{}
}

// Hub owns the label → client registry. It is the only goroutine that
// ever reads or writes that map; every mutation arrives as a command
// from a client's reader or writer goroutine over a channel.
type Hub struct {
	commands chan any
	metrics  *metrics.Metrics

	clients map[string]*client
}

// NewHub builds a hub. Call Run to start its owning goroutine.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		commands: make(chan any, commandQueueSize),
		metrics:  m,
		clients:  make(map[string]*client),
	}
}

// Run is the hub's single goroutine; it owns the registry for its
// entire lifetime and returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				c.terminate(CloseNormal, nil)
			}
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

func (h *Hub) handle(cmd any) {
	switch c := cmd.(type) {
	case cmdRegister:
		h.handleRegister(c)
	case cmdUnregister:
		h.handleUnregister(c)
	case cmdRelay:
		h.handleRelay(c)
	case cmdSync:
		close(c.done)
	}
}

func (h *Hub) handleRegister(cmd cmdRegister) {
	if existing, ok := h.clients[cmd.label]; ok && existing != cmd.client {
		existing.terminateWith(CloseDuplicateConnection, ErrDuplicateConnection)
	}
	h.clients[cmd.label] = cmd.client
	if h.metrics != nil {
		h.metrics.SignalingClients.Set(float64(len(h.clients)))
	}
	log.Debugw("client registered", "label", cmd.label, "session", cmd.client.sessionID)
}

func (h *Hub) handleUnregister(cmd cmdUnregister) {
	if current, ok := h.clients[cmd.label]; ok && current == cmd.client {
		delete(h.clients, cmd.label)
		if h.metrics != nil {
			h.metrics.SignalingClients.Set(float64(len(h.clients)))
		}
	}
}

func (h *Hub) handleRelay(cmd cmdRelay) {
	target, ok := h.clients[cmd.payload.To]
	if !ok {
		log.Debugw("relay target not registered, dropping frame", "to", cmd.payload.To, "type", cmd.frameType)
		if h.metrics != nil {
			h.metrics.SignalingFramesDroppedTotal.Inc()
		}
		return
	}
	data, err := encodeFrame(cmd.frameType, cmd.payload)
	if err != nil {
		return
	}
	target.enqueue(data)
	if h.metrics != nil {
		h.metrics.SignalingFramesForwarded.Inc()
	}
}

// register is called by a client's reader goroutine once it has
// validated a Register frame.
func (h *Hub) register(label string, c *client) {
	h.commands <- cmdRegister{label: label, client: c}
}

// unregister is called when a client's connection terminates.
func (h *Hub) unregister(label string, c *client) {
	h.commands <- cmdUnregister{label: label, client: c}
}

// relay is called by a client's reader goroutine to forward an
// Offer/Answer/IceCandidate frame to its addressed recipient.
func (h *Hub) relay(frameType FrameType, payload *RelayPayload) {
	h.commands <- cmdRelay{frameType: frameType, payload: payload}
}

// sync blocks until every command queued before this call has been
// processed by the hub goroutine. Used by tests to avoid sleeps.
func (h *Hub) sync() {
	done := make(chan struct{})
	h.commands <- cmdSync{done: done}
	<-done
}
