// Package pubsub implements gossip-based publish/subscribe: a
// degree-bounded mesh per topic carries eager forwarding, duplicate
// envelopes are suppressed by (sender, sequence) identity, and
// publishing never blocks on a slow peer — overflowing per-peer queues
// drop the oldest queued message instead.
package pubsub

import (
	"sync"
	"sync/atomic"

	"github.com/thenervelab/hippius-libp2p/internal/core/metrics"
	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

var log = logger.Named("protocol.pubsub")

// Config tunes the mesh degree bounds and payload limits.
type Config struct {
	D, Dlo, Dhi     int
	MaxPayloadBytes int
	QueueSize       int
}

// DefaultConfig matches the node's default mesh shape.
func DefaultConfig() Config {
	return Config{D: 6, Dlo: 4, Dhi: 12, MaxPayloadBytes: 1 << 20, QueueSize: 256}
}

// Sender delivers an encoded envelope to a specific mesh peer. The
// Controller supplies an implementation backed by a multiplexed stream
// per peer; pubsub itself knows nothing about transports.
type Sender interface {
	SendEnvelope(peer types.PeerID, data []byte) error
}

// Engine is the local node's gossip pubsub state: topic subscriptions,
// the mesh, outbound per-peer queues, and duplicate suppression.
type Engine struct {
	cfg     Config
	localID types.PeerID
	sender  Sender
	metrics *metrics.Metrics

	mesh  *meshPeers
	dedup *dedup

	mu            sync.RWMutex
	subscriptions map[types.Topic]bool
	topicPeers    map[types.Topic]map[types.PeerID]bool // all peers known to be interested, mesh or not
	sequence      uint64

	queuesMu sync.Mutex
	queues   map[types.PeerID]chan []byte
}

// New builds a pubsub engine for localID, sending over sender.
func New(cfg Config, localID types.PeerID, sender Sender, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:           cfg,
		localID:       localID,
		sender:        sender,
		metrics:       m,
		mesh:          newMeshPeers(cfg.D, cfg.Dlo, cfg.Dhi),
		dedup:         newDedup(64),
		subscriptions: make(map[types.Topic]bool),
		topicPeers:    make(map[types.Topic]map[types.PeerID]bool),
		queues:        make(map[types.PeerID]chan []byte),
	}
}

// Subscribe begins local participation in topic. Idempotent.
func (e *Engine) Subscribe(topic types.Topic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions[topic] = true
}

// Unsubscribe drops local participation and mesh membership for topic.
// Idempotent.
func (e *Engine) Unsubscribe(topic types.Topic) {
	e.mu.Lock()
	delete(e.subscriptions, topic)
	e.mu.Unlock()
	e.mesh.Clear(topic)
}

// IsSubscribed reports local subscription state. (The Controller's
// idle-eviction exemption uses MeshPeers, not this.)
func (e *Engine) IsSubscribed(topic types.Topic) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.subscriptions[topic]
}

// AddPeerInterest records that a remote peer has joined topic's
// gossip, making it a graft candidate. The Controller does not call it
// and no message announces a peer's topic interest, so outside of direct
// calls (as in tests) the mesh stays empty.
func (e *Engine) AddPeerInterest(topic types.Topic, peer types.PeerID) {
	e.mu.Lock()
	if e.topicPeers[topic] == nil {
		e.topicPeers[topic] = make(map[types.PeerID]bool)
	}
	e.topicPeers[topic][peer] = true
	e.mu.Unlock()
	e.graftIfNeeded(topic)
}

// MeshPeers returns every peer currently in this node's mesh for any
// topic, used by the controller to exempt mesh members from idle
// eviction regardless of recent traffic.
func (e *Engine) MeshPeers() []types.PeerID {
	return e.mesh.AllPeers()
}

// RemovePeer drops a peer from every topic's mesh and interest set,
// called when the Controller observes a disconnection.
func (e *Engine) RemovePeer(peer types.PeerID) {
	e.mu.Lock()
	for topic := range e.topicPeers {
		delete(e.topicPeers[topic], peer)
	}
	e.mu.Unlock()

	e.mu.RLock()
	topics := make([]types.Topic, 0, len(e.topicPeers))
	for t := range e.topicPeers {
		topics = append(topics, t)
	}
	e.mu.RUnlock()
	for _, t := range topics {
		e.mesh.Remove(t, peer)
	}

	e.queuesMu.Lock()
	if q, ok := e.queues[peer]; ok {
		close(q)
		delete(e.queues, peer)
	}
	e.queuesMu.Unlock()
}

func (e *Engine) graftIfNeeded(topic types.Topic) {
	if !e.mesh.NeedMorePeers(topic) {
		return
	}
	e.mu.RLock()
	candidates := make([]types.PeerID, 0, len(e.topicPeers[topic]))
	for p := range e.topicPeers[topic] {
		candidates = append(candidates, p)
	}
	e.mu.RUnlock()

	need := e.cfg.D - e.mesh.Count(topic)
	if need <= 0 {
		return
	}
	for _, p := range e.mesh.SelectPeersToGraft(topic, candidates, need) {
		e.mesh.Add(topic, p)
	}
}

// Publish hands payload to the mesh for topic. It fails with
// ErrPayloadTooLarge when payload exceeds MaxPayloadBytes, and otherwise
// only when the topic has neither a local subscription nor any mesh peer.
func (e *Engine) Publish(topic types.Topic, payload []byte) error {
	if len(payload) > e.cfg.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	e.mu.RLock()
	subscribed := e.subscriptions[topic]
	e.mu.RUnlock()
	peers := e.mesh.List(topic)

	if !subscribed && len(peers) == 0 {
		return ErrNoSubscribers
	}

	env := &Envelope{
		Topic:    topic,
		Payload:  payload,
		Sender:   e.localID,
		Sequence: atomic.AddUint64(&e.sequence, 1),
	}
	e.dedup.Seen(env) // our own publish is never re-delivered to ourselves
	e.forward(env, peers)

	if e.metrics != nil {
		e.metrics.PubSubMessagesSent.WithLabelValues(string(topic)).Inc()
		e.metrics.PubSubBytesSent.WithLabelValues(string(topic)).Add(float64(len(payload)))
	}
	return nil
}

// HandleEnvelope processes a raw envelope received from receivedFrom,
// delivering it locally if subscribed and re-forwarding to the rest of
// the mesh unless it is a duplicate.
func (e *Engine) HandleEnvelope(receivedFrom types.PeerID, data []byte, deliver func(*Envelope)) {
	env, err := decodeEnvelope(data)
	if err != nil {
		log.Debugw("dropping malformed envelope", "from", receivedFrom.ShortString(), "err", err)
		return
	}

	if e.metrics != nil {
		e.metrics.PubSubMessagesReceived.WithLabelValues(string(env.Topic)).Inc()
		e.metrics.PubSubBytesReceived.WithLabelValues(string(env.Topic)).Add(float64(len(env.Payload)))
	}

	if e.dedup.Seen(env) {
		return
	}

	e.mu.RLock()
	subscribed := e.subscriptions[env.Topic]
	e.mu.RUnlock()
	if subscribed && deliver != nil {
		deliver(env)
	}

	peers := e.mesh.List(env.Topic)
	forwardTo := make([]types.PeerID, 0, len(peers))
	for _, p := range peers {
		if p != receivedFrom {
			forwardTo = append(forwardTo, p)
		}
	}
	e.forward(env, forwardTo)
}

func (e *Engine) forward(env *Envelope, peers []types.PeerID) {
	data := encodeEnvelope(env)
	for _, p := range peers {
		e.enqueue(env.Topic, p, data)
	}
}

// enqueue hands data to a peer's bounded outbound queue, dropping the
// oldest queued message on overflow rather than blocking the caller.
func (e *Engine) enqueue(topic types.Topic, peer types.PeerID, data []byte) {
	q := e.queueFor(peer)
	select {
	case q <- data:
	default:
		select {
		case <-q:
			if e.metrics != nil {
				e.metrics.PubSubDroppedTotal.WithLabelValues(string(topic)).Inc()
			}
		default:
		}
		select {
		case q <- data:
		default:
		}
	}
}

func (e *Engine) queueFor(peer types.PeerID) chan []byte {
	e.queuesMu.Lock()
	defer e.queuesMu.Unlock()
	q, ok := e.queues[peer]
	if !ok {
		q = make(chan []byte, e.cfg.QueueSize)
		e.queues[peer] = q
		go e.drainQueue(peer, q)
	}
	return q
}

func (e *Engine) drainQueue(peer types.PeerID, q chan []byte) {
	for data := range q {
		if err := e.sender.SendEnvelope(peer, data); err != nil {
			log.Debugw("send to mesh peer failed", "peer", peer.ShortString(), "err", err)
		}
	}
}
