package pubsub

import "errors"

var (
	// ErrNoSubscribers is returned from Publish when a topic has neither a
	// local subscription nor any mesh peer to forward to.
	ErrNoSubscribers = errors.New("pubsub: no subscribers")

	// ErrTopicUnknown names a topic this engine has never seen. No Engine
	// method returns it: Publish on such a topic reports ErrNoSubscribers.
	ErrTopicUnknown = errors.New("pubsub: unknown topic")

	// ErrPayloadTooLarge is returned when a publish payload exceeds the
	// configured maximum.
	ErrPayloadTooLarge = errors.New("pubsub: payload too large")
)
