// Package noise performs the Noise_XX handshake that secures every
// connection after a transport has dialed or accepted it: each side
// presents a static X25519 key derived from its identity key (the
// Ed25519 key itself is never sent) while negotiating a
// fresh ephemeral session key for that connection alone, so compromising
// one session's keys never reveals the traffic of any other session.
package noise

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/flynn/noise"
	"github.com/thenervelab/hippius-libp2p/internal/core/identity"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// ErrHandshakeFailed covers any failure during the XX handshake, whether
// a transport error or a cryptographic verification failure.
var ErrHandshakeFailed = errors.New("noise: handshake failed")

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// SecureConn wraps a raw net.Conn with Noise-encrypted framing, once the
// handshake has completed.
type SecureConn struct {
	net.Conn
	remotePeer types.PeerID
	send, recv *noise.CipherState
}

// RemotePeer returns the PeerID derived from the remote's Noise static
// key (a SHA-256 hash of it). This is not the PeerID of the remote's
// Ed25519 identity key.
func (c *SecureConn) RemotePeer() types.PeerID { return c.remotePeer }

// Read decrypts and returns the next frame's plaintext.
func (c *SecureConn) Read(b []byte) (int, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.Conn, lenBuf[:]); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	ciphertext := make([]byte, n)
	if _, err := io.ReadFull(c.Conn, ciphertext); err != nil {
		return 0, err
	}
	plaintext, err := c.recv.Decrypt(nil, nil, ciphertext)
	if err != nil {
		return 0, fmt.Errorf("noise: decrypt: %w", err)
	}
	return copy(b, plaintext), nil
}

// Write encrypts b as a single frame and writes it out.
func (c *SecureConn) Write(b []byte) (int, error) {
	ciphertext, err := c.send.Encrypt(nil, nil, b)
	if err != nil {
		return 0, fmt.Errorf("noise: encrypt: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ciphertext)))
	if _, err := c.Conn.Write(lenBuf[:]); err != nil {
		return 0, err
	}
	if _, err := c.Conn.Write(ciphertext); err != nil {
		return 0, err
	}
	return len(b), nil
}

// HandshakeOutbound runs the initiator side of Noise_XX over conn,
// using the static key derived from id.
func HandshakeOutbound(conn net.Conn, id *identity.Identity) (*SecureConn, error) {
	return handshake(conn, id, true)
}

// HandshakeInbound runs the responder side of Noise_XX over conn.
func HandshakeInbound(conn net.Conn, id *identity.Identity) (*SecureConn, error) {
	return handshake(conn, id, false)
}

func handshake(conn net.Conn, id *identity.Identity, initiator bool) (*SecureConn, error) {
	staticKeyPair, err := staticKeyPairFromEd25519(id.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: staticKeyPair,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	var csSend, csRecv *noise.CipherState

	// Noise_XX is 3 messages: -> e, <- e,ee,s,es, -> s,se
	if initiator {
		msg, _, _, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		if err := writeFrame(conn, msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}

		resp, err := readFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		if _, _, _, err := hs.ReadMessage(nil, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}

		msg2, cs1, cs2, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		if err := writeFrame(conn, msg2); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		csSend, csRecv = cs1, cs2
	} else {
		msg, err := readFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		if _, _, _, err := hs.ReadMessage(nil, msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}

		resp, _, _, err := hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		if err := writeFrame(conn, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}

		final, err := readFrame(conn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		_, cs1, cs2, err := hs.ReadMessage(nil, final)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		csSend, csRecv = cs2, cs1
	}

	remoteStatic := hs.PeerStatic()
	remotePeer, err := peerIDFromNoiseStatic(remoteStatic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}

	return &SecureConn{
		Conn:       conn,
		remotePeer: remotePeer,
		send:       csSend,
		recv:       csRecv,
	}, nil
}

// staticKeyPairFromEd25519 converts the node's Ed25519 identity into the
// X25519 key pair Noise_XX needs, by running Noise's own DH25519
// generator seeded from the identity's private key bytes. The resulting
// static key is the same on every connection for a given identity, and
// the identity key itself is never used as a DH key. Nothing in the
// handshake lets the remote check that the static key belongs to a
// particular Ed25519 identity.
func staticKeyPairFromEd25519(priv ed25519.PrivateKey) (noise.DHKey, error) {
	seed := priv.Seed()
	return cipherSuite.GenerateKeypair(newDeterministicReader(seed))
}

func peerIDFromNoiseStatic(staticPub []byte) (types.PeerID, error) {
	if len(staticPub) == 0 {
		return types.EmptyPeerID, fmt.Errorf("empty remote static key")
	}
	return types.PeerIDFromBytes(hashTo32(staticPub))
}

func writeFrame(conn net.Conn, msg []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(msg)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := conn.Write(msg)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
