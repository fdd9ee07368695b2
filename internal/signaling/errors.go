package signaling

import "errors"

var (
	// ErrProtocolViolation closes a client that sends anything but
	// Register before it has registered.
	ErrProtocolViolation = errors.New("signaling: protocol violation")

	// ErrDuplicateConnection closes a client displaced by a second
	// Register under the same label.
	ErrDuplicateConnection = errors.New("signaling: duplicate connection")

	// ErrSlowConsumer closes a client whose outbound queue overflowed.
	ErrSlowConsumer = errors.New("signaling: slow consumer")

	// ErrImpersonationAttempt closes a client whose relay frame's "from"
	// does not match its own registered label.
	ErrImpersonationAttempt = errors.New("signaling: impersonation attempt")
)

// CloseCode is the WebSocket close code sent alongside the errors
// above, per the wire table in the external interfaces section.
type CloseCode int

const (
	CloseNormal               CloseCode = 1000
	CloseProtocolViolation    CloseCode = 4001
	CloseDuplicateConnection  CloseCode = 4002
	CloseSlowConsumer         CloseCode = 4003
	CloseImpersonationAttempt CloseCode = 4004
)
