package signaling

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	outboundQueueSize = 64
	livenessTimeout   = 60 * time.Second
)

type clientState int32

const (
	stateConnected clientState = iota
	stateRegistered
	stateTerminated
)

// client is one WebSocket connection's session: a reader goroutine that
// enforces the CONNECTED→REGISTERED state machine and liveness, and a
// writer goroutine that owns the bounded outbound queue. Neither
// touches the hub's registry directly — they only send hub commands.
type client struct {
	conn *websocket.Conn
	hub  *Hub

	// sessionID identifies this connection in logs before (and after) it
	// registers under a peer label, since two connections can briefly
	// share a label during a displacement.
	sessionID uuid.UUID

	label atomic.Value // string, empty until Registered

	state atomic.Int32

	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}

	lastActivity atomic.Int64 // unix nano
}

func newClient(conn *websocket.Conn, hub *Hub) *client {
	c := &client{
		conn:      conn,
		hub:       hub,
		sessionID: uuid.New(),
		outbound:  make(chan []byte, outboundQueueSize),
		done:      make(chan struct{}),
	}
	c.label.Store("")
	c.touch()
	return c
}

func (c *client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *client) Label() string {
	v := c.label.Load()
	if v == nil {
		return ""
	}
	return v.(string)
}

// run drives both the reader and writer for this connection until one
// of them exits, then unregisters the client and closes the socket.
func (c *client) run() {
	go c.writeLoop()
	c.readLoop()
}

func (c *client) readLoop() {
	defer c.terminate(CloseNormal, nil)

	c.conn.SetReadDeadline(time.Now().Add(livenessTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(livenessTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(livenessTimeout))

		frame, err := decodeFrame(data)
		if err != nil {
			c.terminateWith(CloseProtocolViolation, ErrProtocolViolation)
			return
		}

		if c.state.Load() == int32(stateConnected) {
			if frame.Type != FrameRegister {
				c.terminateWith(CloseProtocolViolation, ErrProtocolViolation)
				return
			}
			if !c.handleRegister(frame) {
				return
			}
			continue
		}

		switch frame.Type {
		case FrameOffer, FrameAnswer, FrameIceCandidate:
			if !c.handleRelay(frame) {
				return
			}
		default:
			c.terminateWith(CloseProtocolViolation, ErrProtocolViolation)
			return
		}
	}
}

func (c *client) handleRegister(frame *Frame) bool {
	payload, err := frame.registerPayload()
	if err != nil || payload.PeerID == "" {
		c.terminateWith(CloseProtocolViolation, ErrProtocolViolation)
		return false
	}
	c.label.Store(payload.PeerID)
	c.state.Store(int32(stateRegistered))
	c.hub.register(payload.PeerID, c)
	return true
}

func (c *client) handleRelay(frame *Frame) bool {
	payload, err := frame.relayPayload()
	if err != nil {
		c.terminateWith(CloseProtocolViolation, ErrProtocolViolation)
		return false
	}
	if payload.From != c.Label() {
		c.terminateWith(CloseImpersonationAttempt, ErrImpersonationAttempt)
		return false
	}
	c.hub.relay(frame.Type, payload)
	return true
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(livenessTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.terminate(CloseNormal, nil)
				return
			}
			c.touch()
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.terminate(CloseNormal, nil)
				return
			}
		}
	}
}

// enqueue delivers a frame to this client's outbound queue, closing
// the connection with SlowConsumer on overflow.
func (c *client) enqueue(data []byte) {
	select {
	case c.outbound <- data:
	default:
		c.terminateWith(CloseSlowConsumer, ErrSlowConsumer)
	}
}

func (c *client) terminateWith(code CloseCode, _ error) {
	c.terminate(code, nil)
}

func (c *client) terminate(code CloseCode, _ error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateTerminated))
		if label := c.Label(); label != "" {
			c.hub.unregister(label, c)
		}
		close(c.done)
		if c.conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(int(code), ""), deadline)
			_ = c.conn.Close()
		}
	})
}
