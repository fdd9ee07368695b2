// Package identity implements the node's long-lived key pair and the
// PeerID derived from it.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/minio/sha256-simd"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// Identity is a node's cryptographic identity: an Ed25519 key pair and
// the PeerID derived from its public key.
type Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	id   types.PeerID
}

// New generates a fresh random Ed25519 key pair.
func New() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey builds an Identity from an existing Ed25519 private key.
func FromPrivateKey(priv ed25519.PrivateKey) (*Identity, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{
		priv: priv,
		pub:  pub,
		id:   peerIDFromPublicKey(pub),
	}, nil
}

// peerIDFromPublicKey derives a PeerID as SHA-256(pubkey bytes).
func peerIDFromPublicKey(pub ed25519.PublicKey) types.PeerID {
	hash := sha256.Sum256(pub)
	var id types.PeerID
	copy(id[:], hash[:])
	return id
}

// ID returns the node's PeerID.
func (i *Identity) ID() types.PeerID { return i.id }

// PublicKey returns the raw Ed25519 public key.
func (i *Identity) PublicKey() ed25519.PublicKey { return i.pub }

// PrivateKey returns the raw Ed25519 private key.
func (i *Identity) PrivateKey() ed25519.PrivateKey { return i.priv }

// Sign signs data with the node's private key.
func (i *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(i.priv, data)
}

// Verify checks a signature made by the holder of pub over data.
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
	return ed25519.Verify(pub, data, sig)
}

// Fingerprint returns a short, human-readable identifier for log lines.
func (i *Identity) Fingerprint() string {
	return i.id.ShortString()
}
