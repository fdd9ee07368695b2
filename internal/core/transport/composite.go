package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
)

// Composite dispatches Dial/Listen across a set of registered transports,
// picking whichever one reports CanDial for the given address — the
// "either-of" transport selector. With exactly two members registered
// (tcp and websocket), a trailing "/ws" on the multiaddress is what tips
// the choice toward the websocket transport.
type Composite struct {
	mu         sync.RWMutex
	transports []Transport
}

// NewComposite creates an empty composite; transports are added with Add.
func NewComposite() *Composite {
	return &Composite{}
}

// Add registers a transport. Transports are tried in registration order.
func (c *Composite) Add(t Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transports = append(c.transports, t)
}

func (c *Composite) pick(addr multiaddr.Multiaddress) Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.transports {
		if t.CanDial(addr) {
			return t
		}
	}
	return nil
}

// Dial picks the first registered transport that can dial addr.
func (c *Composite) Dial(ctx context.Context, addr multiaddr.Multiaddress) (net.Conn, error) {
	t := c.pick(addr)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTransportForAddr, addr)
	}
	return t.Dial(ctx, addr)
}

// Listen picks the first registered transport that can dial (and hence
// listen on) addr.
func (c *Composite) Listen(addr multiaddr.Multiaddress) (Listener, error) {
	t := c.pick(addr)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTransportForAddr, addr)
	}
	return t.Listen(addr)
}

// Close closes every registered transport, returning the first error
// encountered (if any) after attempting to close all of them.
func (c *Composite) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for _, t := range c.transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
