// Package types defines the value types shared across hippius-libp2p.
//
// This is the lowest-level package in the module: it depends on nothing
// else internal, so every other package can import it without creating
// a cycle.
package types

import (
	"bytes"
	"errors"

	"github.com/mr-tron/base58"
)

// PeerID is the 32-byte identifier of a participant, derived from the
// SHA-256 hash of its public key.
//
// External representation is always base58 (ParsePeerID / String), never
// hex — this matches the bootnode multiaddress format and keeps identity
// display consistent across logs, config files and the wire.
type PeerID [32]byte

// EmptyPeerID is the zero-value PeerID, used as a sentinel for "no peer".
var EmptyPeerID PeerID

// ErrInvalidPeerID is returned when a string does not decode to a 32-byte
// PeerID.
var ErrInvalidPeerID = errors.New("invalid peer id: must be 32-byte base58")

// String returns the canonical base58 representation.
func (id PeerID) String() string {
	if id.IsEmpty() {
		return ""
	}
	return base58.Encode(id[:])
}

// ShortString returns the first 8 characters of the base58 form, for
// compact log lines.
func (id PeerID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes returns the raw 32 bytes.
func (id PeerID) Bytes() []byte {
	return id[:]
}

// IsEmpty reports whether id is the zero value.
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// Less implements the lexicographic tie-break used to decide which side of
// a duplicate connection survives: the peer with the numerically smaller
// raw ID bytes keeps the connection it dialed.
func (id PeerID) Less(other PeerID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// PeerIDFromBytes builds a PeerID from exactly 32 bytes.
func PeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != 32 {
		return EmptyPeerID, ErrInvalidPeerID
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

// ParsePeerID decodes a base58 string into a PeerID.
func ParsePeerID(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrInvalidPeerID
	}
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return EmptyPeerID, ErrInvalidPeerID
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

// Topic is the name of a PubSub channel. Topics have no namespacing or
// hierarchy; any non-empty string is a valid topic name.
type Topic string

func (t Topic) String() string { return string(t) }

// IsEmpty reports whether the topic name is empty.
func (t Topic) IsEmpty() bool { return t == "" }
