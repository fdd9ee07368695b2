package pubsub

import (
	"encoding/binary"
	"fmt"

	"github.com/multiformats/go-varint"

	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// Envelope is a single published message as it travels the mesh.
// Sequence is monotonic per sender per session; (Sender, Sequence) is
// the message identity duplicate suppression keys on.
type Envelope struct {
	Topic    types.Topic
	Payload  []byte
	Sender   types.PeerID
	Sequence uint64
}

// senderSeqKey is the dedup cache key: identical payloads from
// different senders must remain distinguishable messages.
type senderSeqKey struct {
	sender types.PeerID
	seq    uint64
}

func keyOf(e *Envelope) senderSeqKey {
	return senderSeqKey{sender: e.Sender, seq: e.Sequence}
}

// encodeEnvelope produces the wire form sent over a pubsub stream: the
// topic length as a varint (topic names are short and usually fit in a
// single byte), the topic bytes, the sender's 32 raw bytes, a
// big-endian sequence, then the raw payload.
func encodeEnvelope(e *Envelope) []byte {
	topic := []byte(e.Topic)
	lenBuf := varint.ToUvarint(uint64(len(topic)))
	buf := make([]byte, len(lenBuf)+len(topic)+32+8+len(e.Payload))
	off := copy(buf, lenBuf)
	off += copy(buf[off:], topic)
	off += copy(buf[off:], e.Sender.Bytes())
	binary.BigEndian.PutUint64(buf[off:], e.Sequence)
	off += 8
	copy(buf[off:], e.Payload)
	return buf
}

func decodeEnvelope(buf []byte) (*Envelope, error) {
	topicLen, n, err := varint.FromUvarint(buf)
	if err != nil {
		return nil, fmt.Errorf("pubsub: bad topic length: %w", err)
	}
	off := n
	if uint64(len(buf)) < uint64(off)+topicLen+32+8 {
		return nil, fmt.Errorf("pubsub: envelope truncated")
	}
	topic := types.Topic(buf[off : off+int(topicLen)])
	off += int(topicLen)
	sender, err := types.PeerIDFromBytes(buf[off : off+32])
	if err != nil {
		return nil, fmt.Errorf("pubsub: bad sender: %w", err)
	}
	off += 32
	seq := binary.BigEndian.Uint64(buf[off:])
	off += 8
	payload := buf[off:]
	return &Envelope{Topic: topic, Payload: payload, Sender: sender, Sequence: seq}, nil
}
