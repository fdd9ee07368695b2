// Package upgrader composes a freshly dialed or accepted raw connection
// through security (Noise) and then a stream muxer (yamux), in that
// order — matching the order transports are upgraded throughout the
// corpus this module is grounded on: authenticate and encrypt first,
// multiplex second.
package upgrader

import (
	"fmt"
	"net"

	"github.com/thenervelab/hippius-libp2p/internal/core/identity"
	"github.com/thenervelab/hippius-libp2p/internal/core/muxer/yamux"
	"github.com/thenervelab/hippius-libp2p/internal/core/security/noise"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// ErrUpgradeFailed wraps any failure during security handshake or
// muxer setup.
var ErrUpgradeFailed = fmt.Errorf("upgrader: upgrade failed")

// UpgradedConn is a secured, multiplexed connection ready for the
// protocol layer to open streams over.
type UpgradedConn struct {
	Session    *yamux.Session
	RemotePeer types.PeerID
}

// UpgradeOutbound secures and multiplexes a connection this node dialed.
func UpgradeOutbound(conn net.Conn, id *identity.Identity) (*UpgradedConn, error) {
	secure, err := noise.HandshakeOutbound(conn, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	session, err := yamux.NewOutbound(secure)
	if err != nil {
		_ = secure.Close()
		return nil, fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	return &UpgradedConn{Session: session, RemotePeer: secure.RemotePeer()}, nil
}

// UpgradeInbound secures and multiplexes a connection this node accepted.
func UpgradeInbound(conn net.Conn, id *identity.Identity) (*UpgradedConn, error) {
	secure, err := noise.HandshakeInbound(conn, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	session, err := yamux.NewInbound(secure)
	if err != nil {
		_ = secure.Close()
		return nil, fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	return &UpgradedConn{Session: session, RemotePeer: secure.RemotePeer()}, nil
}
