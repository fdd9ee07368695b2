// Package websocket implements the browser-compatible transport: each
// multiplexed byte stream is carried as a sequence of binary WebSocket
// frames over net/http, using the same gorilla/websocket library the
// signaling hub uses for its own framing.
package websocket

import (
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// conn adapts a *websocket.Conn to net.Conn, so the security and muxer
// layers above it never need to know the underlying transport was
// WebSocket rather than TCP.
type conn struct {
	ws *websocket.Conn

	readBuf []byte
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

func (c *conn) Read(b []byte) (int, error) {
	for len(c.readBuf) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, mapCloseErr(err)
		}
		c.readBuf = data
	}
	n := copy(b, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *conn) Write(b []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *conn) Close() error                       { return c.ws.Close() }
func (c *conn) LocalAddr() net.Addr                 { return c.ws.LocalAddr() }
func (c *conn) RemoteAddr() net.Addr                { return c.ws.RemoteAddr() }
func (c *conn) SetDeadline(t time.Time) error       { return c.ws.UnderlyingConn().SetDeadline(t) }
func (c *conn) SetReadDeadline(t time.Time) error    { return c.ws.SetReadDeadline(t) }
func (c *conn) SetWriteDeadline(t time.Time) error   { return c.ws.SetWriteDeadline(t) }

func mapCloseErr(err error) error {
	if _, ok := err.(*websocket.CloseError); ok {
		return io.EOF
	}
	return err
}

var _ net.Conn = (*conn)(nil)
