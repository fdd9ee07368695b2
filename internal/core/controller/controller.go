// Package controller owns the node's single reactive event loop: it
// holds the only mutable references to the transport stack, peer
// table, and pubsub engine, and drives all three from one goroutine
// multiplexing transport events, discovery events, and inbound
// commands. Nothing outside this package ever touches the peer table
// directly.
package controller

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/thenervelab/hippius-libp2p/internal/core/identity"
	"github.com/thenervelab/hippius-libp2p/internal/core/metrics"
	"github.com/thenervelab/hippius-libp2p/internal/core/peerstore"
	"github.com/thenervelab/hippius-libp2p/internal/core/transport"
	"github.com/thenervelab/hippius-libp2p/internal/core/upgrader"
	"github.com/thenervelab/hippius-libp2p/internal/protocol/pubsub"
	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

var log = logger.Named("core.controller")

const (
	defaultIdleTTL      = 10 * time.Minute
	shutdownDrainDeadline = 2 * time.Second
	evictionSweepInterval = time.Minute
)

// Config tunes the controller and the components it owns.
type Config struct {
	IdleTTL     time.Duration
	PubSub      pubsub.Config
	ListenAddrs []multiaddr.Multiaddress
}

// Controller is the node's owning event loop: identity, transport,
// discovery, peer table, and pubsub engine are all reachable only
// through it.
type Controller struct {
	cfg      Config
	identity *identity.Identity
	tr       *transport.Composite
	peers    *peerstore.Store
	metrics  *metrics.Metrics
	pubsub   *pubsub.Engine

	events   chan event
	commands chan command

	connsMu sync.Mutex
	conns   map[types.PeerID]*upgrader.UpgradedConn
	streams map[types.PeerID]net.Conn

	listeners []transport.Listener

	clock clock.Clock
}

// New builds a controller. Call Run to start the event loop.
func New(cfg Config, id *identity.Identity, tr *transport.Composite, m *metrics.Metrics, clk clock.Clock) *Controller {
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.PubSub == (pubsub.Config{}) {
		cfg.PubSub = pubsub.DefaultConfig()
	}
	if clk == nil {
		clk = clock.New()
	}

	c := &Controller{
		cfg:      cfg,
		identity: id,
		tr:       tr,
		metrics:  m,
		peers:    peerstore.New(clk, cfg.IdleTTL),
		events:   make(chan event, 256),
		commands: make(chan command, 64),
		conns:    make(map[types.PeerID]*upgrader.UpgradedConn),
		streams:  make(map[types.PeerID]net.Conn),
		clock:    clk,
	}
	c.pubsub = pubsub.New(cfg.PubSub, id.ID(), c, m)
	return c
}

// ListenAndServe binds every configured listen address and starts
// accepting inbound connections on each.
func (c *Controller) ListenAndServe() error {
	for _, addr := range c.cfg.ListenAddrs {
		ln, err := c.tr.Listen(addr)
		if err != nil {
			return fmt.Errorf("controller: listen %s: %w", addr, err)
		}
		c.listeners = append(c.listeners, ln)
		go c.acceptLoop(ln)
	}
	return nil
}

func (c *Controller) acceptLoop(ln transport.Listener) {
	for {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		go c.handleInbound(raw)
	}
}

func (c *Controller) handleInbound(raw net.Conn) {
	up, err := upgrader.UpgradeInbound(raw, c.identity)
	if err != nil {
		log.Debugw("inbound upgrade failed", "err", err)
		_ = raw.Close()
		if c.metrics != nil {
			c.metrics.DialAttempts.WithLabelValues("upgrade_failed").Inc()
		}
		return
	}
	c.events <- connEstablished{peer: up.RemotePeer, conn: up, source: peerstore.SourceInbound}
}

// Connect dials id at addrs, upgrades the connection, and emits a
// connEstablished event. It implements bootstrap.Connector and is what
// OnPeerDiscovered calls for each sighting.
func (c *Controller) Connect(ctx context.Context, id types.PeerID, addrs []multiaddr.Multiaddress) error {
	if id == c.identity.ID() {
		return nil
	}
	c.connsMu.Lock()
	_, already := c.conns[id]
	c.connsMu.Unlock()
	if already {
		return nil
	}

	var lastErr error
	for _, addr := range addrs {
		raw, err := c.tr.Dial(ctx, addr)
		if err != nil {
			lastErr = err
			continue
		}
		up, err := upgrader.UpgradeOutbound(raw, c.identity)
		if err != nil {
			_ = raw.Close()
			lastErr = err
			continue
		}
		if c.metrics != nil {
			c.metrics.DialAttempts.WithLabelValues("success").Inc()
		}
		c.events <- connEstablished{peer: up.RemotePeer, conn: up, addr: addr, source: peerstore.SourceDial}
		return nil
	}
	if c.metrics != nil {
		c.metrics.DialAttempts.WithLabelValues("failed").Inc()
	}
	if lastErr == nil {
		lastErr = transport.ErrNoTransportForAddr
	}
	return lastErr
}

// OnPeerDiscovered is the callback mDNS discovery reports sightings to
// (bootstrap dials through Connect instead): it folds the sighting into the peer table and attempts a
// connection.
func (c *Controller) OnPeerDiscovered(id types.PeerID, addrs []multiaddr.Multiaddress, source peerstore.Source) {
	c.events <- peerDiscovered{peer: id, addrs: addrs, source: source}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = c.Connect(ctx, id, addrs)
	}()
}

// Run is the controller's single goroutine. It returns when Shutdown
// completes.
func (c *Controller) Run(ctx context.Context) {
	ticker := c.clock.Ticker(evictionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case e := <-c.events:
			c.handleEvent(e)
		case cmd := <-c.commands:
			if c.handleCommand(cmd) {
				return
			}
		case <-ticker.C:
			c.sweepIdlePeers()
		}
	}
}

func (c *Controller) handleEvent(e event) {
	switch ev := e.(type) {
	case connEstablished:
		c.onConnEstablished(ev)
	case connClosed:
		c.onConnClosed(ev)
	case peerDiscovered:
		c.peers.Upsert(ev.peer, ev.addrs, ev.source)
		if c.metrics != nil {
			c.metrics.PeersEverSeen.Inc()
		}
	case envelopeReceived:
		c.pubsub.HandleEnvelope(ev.from, ev.data, nil)
	}
}

func (c *Controller) onConnEstablished(ev connEstablished) {
	c.connsMu.Lock()
	if existing, ok := c.conns[ev.peer]; ok {
		// Tie-break: the connection initiated by the numerically smaller
		// PeerID wins. An inbound connection was initiated by the remote
		// peer, any other by this node.
		outbound := ev.source != peerstore.SourceInbound
		if c.identity.ID().Less(ev.peer) != outbound {
			c.connsMu.Unlock()
			_ = ev.conn.Session.Close()
			return
		}
		_ = existing.Session.Close()
	}
	c.conns[ev.peer] = ev.conn
	c.connsMu.Unlock()

	addrs := []multiaddr.Multiaddress(nil)
	if !ev.addr.IsEmpty() {
		addrs = []multiaddr.Multiaddress{ev.addr}
	}
	c.peers.Upsert(ev.peer, addrs, ev.source)
	if c.metrics != nil {
		c.metrics.PeersConnected.Set(float64(len(c.conns)))
		c.metrics.PeersEverSeen.Inc()
	}

	c.openPubSubStream(ev.peer, ev.conn, ev.source == peerstore.SourceDial || ev.source == peerstore.SourceBootstrap)
}

func (c *Controller) openPubSubStream(peer types.PeerID, up *upgrader.UpgradedConn, outbound bool) {
	var stream net.Conn
	var err error
	if outbound {
		stream, err = up.Session.OpenStream()
	} else {
		stream, err = up.Session.AcceptStream()
	}
	if err != nil {
		log.Debugw("pubsub stream setup failed", "peer", peer.ShortString(), "err", err)
		return
	}

	c.connsMu.Lock()
	c.streams[peer] = stream
	c.connsMu.Unlock()

	go c.readEnvelopes(peer, stream)
}

func (c *Controller) readEnvelopes(peer types.PeerID, stream net.Conn) {
	defer func() {
		c.events <- connClosed{peer: peer}
	}()
	for {
		data, err := readStreamFrame(stream)
		if err != nil {
			return
		}
		c.events <- envelopeReceived{from: peer, data: data}
	}
}

func (c *Controller) onConnClosed(ev connClosed) {
	c.connsMu.Lock()
	delete(c.conns, ev.peer)
	delete(c.streams, ev.peer)
	c.connsMu.Unlock()

	c.pubsub.RemovePeer(ev.peer)
	if c.metrics != nil {
		c.metrics.PeersConnected.Set(float64(len(c.conns)))
	}
}

// syncMeshSubscriptions keeps peerstore.Record.Subscribed in step with
// actual pubsub mesh membership, so EvictIdle's exemption reflects
// whether a peer is still carrying topic traffic for us rather than
// going stale the moment it falls silent.
func (c *Controller) syncMeshSubscriptions() {
	meshed := make(map[types.PeerID]bool)
	for _, id := range c.pubsub.MeshPeers() {
		meshed[id] = true
	}
	for _, rec := range c.peers.All() {
		c.peers.MarkSubscribed(rec.ID, meshed[rec.ID])
	}
}

func (c *Controller) sweepIdlePeers() {
	c.syncMeshSubscriptions()
	for _, id := range c.peers.EvictIdle() {
		c.connsMu.Lock()
		conn, ok := c.conns[id]
		delete(c.conns, id)
		delete(c.streams, id)
		c.connsMu.Unlock()
		if ok {
			_ = conn.Session.Close()
		}
		c.pubsub.RemovePeer(id)
		if c.metrics != nil {
			c.metrics.Evictions.WithLabelValues("idle").Inc()
		}
	}
}

// SendEnvelope implements pubsub.Sender: it writes a framed envelope to
// the dedicated pubsub stream for peer, opening none on demand — a
// missing stream means the peer disconnected and the send is dropped.
func (c *Controller) SendEnvelope(peer types.PeerID, data []byte) error {
	c.connsMu.Lock()
	stream, ok := c.streams[peer]
	c.connsMu.Unlock()
	if !ok {
		return fmt.Errorf("controller: no pubsub stream to %s", peer.ShortString())
	}
	return writeStreamFrame(stream, data)
}

// --- Command-issuing public API ---

func (c *Controller) CreateTopic(topic types.Topic) { c.commands <- cmdCreateTopic{topic: topic} }
func (c *Controller) JoinTopic(topic types.Topic)    { c.commands <- cmdJoinTopic{topic: topic} }
func (c *Controller) LeaveTopic(topic types.Topic)   { c.commands <- cmdLeaveTopic{topic: topic} }

func (c *Controller) Publish(topic types.Topic, payload []byte) error {
	result := make(chan error, 1)
	c.commands <- cmdPublish{topic: topic, payload: payload, result: result}
	return <-result
}

func (c *Controller) ListPeers() []types.PeerID {
	result := make(chan []types.PeerID, 1)
	c.commands <- cmdListPeers{result: result}
	return <-result
}

// Shutdown requests the controller stop, draining in-flight work with
// a deadline, and blocks until it has.
func (c *Controller) Shutdown() {
	done := make(chan struct{})
	c.commands <- cmdShutdown{done: done}
	<-done
}

// handleCommand returns true when the controller should exit its loop.
func (c *Controller) handleCommand(cmd command) bool {
	switch cc := cmd.(type) {
	case cmdCreateTopic:
		c.pubsub.Subscribe(cc.topic) // creating and joining are equivalent: engine tracks interest, not a separate "exists" state
	case cmdJoinTopic:
		c.pubsub.Subscribe(cc.topic)
	case cmdLeaveTopic:
		c.pubsub.Unsubscribe(cc.topic)
	case cmdPublish:
		cc.result <- c.pubsub.Publish(cc.topic, cc.payload)
	case cmdListPeers:
		ids := make([]types.PeerID, 0)
		for _, rec := range c.peers.All() {
			ids = append(ids, rec.ID)
		}
		cc.result <- ids
	case cmdShutdown:
		c.shutdown()
		close(cc.done)
		return true
	}
	return false
}

func (c *Controller) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDrainDeadline)
	defer cancel()

	for _, ln := range c.listeners {
		_ = ln.Close()
	}

	c.connsMu.Lock()
	conns := make([]*upgrader.UpgradedConn, 0, len(c.conns))
	peers := make([]types.PeerID, 0, len(c.conns))
	for id, conn := range c.conns {
		conns = append(conns, conn)
		peers = append(peers, id)
	}
	c.connsMu.Unlock()

	// Closing sessions is independent per peer; fanning it out means a
	// slow or wedged session can't stall the rest of the drain. The
	// fan-out itself still has to respect the deadline, since a session
	// whose Close never returns would otherwise wedge Wait forever.
	var g errgroup.Group
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			return conn.Session.Close()
		})
	}

	waitDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		log.Warnw("shutdown drain deadline exceeded, abandoning remaining sessions", "remaining", len(conns))
	}

	// The pubsub engine's per-peer drain goroutines only ever stop when
	// RemovePeer closes their queue; with the event loop about to exit,
	// nothing else will ever call it for peers still connected at
	// shutdown time.
	for _, id := range peers {
		c.pubsub.RemovePeer(id)
	}
}
