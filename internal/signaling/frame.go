package signaling

import "encoding/json"

// FrameType discriminates a SignalingFrame's payload shape.
type FrameType string

const (
	FrameRegister     FrameType = "Register"
	FrameOffer        FrameType = "Offer"
	FrameAnswer       FrameType = "Answer"
	FrameIceCandidate FrameType = "IceCandidate"
)

// Frame is the self-describing wire record exchanged over the
// signaling WebSocket: a type discriminator plus an opaque payload
// object. SDP and ICE candidate fields are never parsed, only
// forwarded byte-identical between the addressed pair.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RegisterPayload is Frame.Payload for type Register.
type RegisterPayload struct {
	PeerID string `json:"peer_id"`
}

// RelayPayload is Frame.Payload for Offer, Answer, and IceCandidate:
// each carries the same from/to addressing plus one opaque string
// field whose name depends on the frame type.
type RelayPayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}

func encodeFrame(t FrameType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: t, Payload: raw})
}

func decodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Frame) relayPayload() (*RelayPayload, error) {
	var p RelayPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (f *Frame) registerPayload() (*RegisterPayload, error) {
	var p RegisterPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
