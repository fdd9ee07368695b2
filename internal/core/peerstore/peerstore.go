// Package peerstore holds the table of known peers: their addresses,
// how they were learned about, and when they were last seen. It is owned
// exclusively by the node controller — nothing else mutates it directly.
package peerstore

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/thenervelab/hippius-libp2p/pkg/multiaddr"
	"github.com/thenervelab/hippius-libp2p/pkg/types"
)

// Source records how a peer record was learned about.
type Source string

const (
	SourceMDNS      Source = "mdns"
	SourceBootstrap Source = "bootstrap"
	SourceDial      Source = "dial"
	SourceInbound   Source = "inbound"
)

// Record is everything the node knows about one remote peer.
type Record struct {
	ID           types.PeerID
	Addrs        []multiaddr.Multiaddress
	Source       Source
	LastSeen     time.Time
	Subscribed   bool // true while the controller has an active topic mesh membership with this peer
}

// Store is a concurrency-safe table of Records, with idle eviction.
type Store struct {
	mu      sync.RWMutex
	records map[types.PeerID]*Record
	clock   clock.Clock
	idleTTL time.Duration
}

// New creates a Store that evicts peers unseen (and not subscribed-to)
// for longer than idleTTL.
func New(clk clock.Clock, idleTTL time.Duration) *Store {
	return &Store{
		records: make(map[types.PeerID]*Record),
		clock:   clk,
		idleTTL: idleTTL,
	}
}

// Upsert records or refreshes a peer sighting.
func (s *Store) Upsert(id types.PeerID, addrs []multiaddr.Multiaddress, source Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		rec = &Record{ID: id, Source: source}
		s.records[id] = rec
	}
	if len(addrs) > 0 {
		rec.Addrs = addrs
	}
	rec.LastSeen = s.clock.Now()
}

// MarkSubscribed flags whether id is currently relevant to an active
// topic mesh, exempting it from idle eviction while true.
func (s *Store) MarkSubscribed(id types.PeerID, subscribed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Subscribed = subscribed
	}
}

// Get returns a copy of the record for id, if known.
func (s *Store) Get(id types.PeerID) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Remove deletes id from the store.
func (s *Store) Remove(id types.PeerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// All returns a snapshot of every known record.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

// Count returns the number of known peers.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// EvictIdle removes every record that is neither subscribed-to nor seen
// within idleTTL, returning the evicted IDs.
func (s *Store) EvictIdle() []types.PeerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var evicted []types.PeerID
	for id, rec := range s.records {
		if rec.Subscribed {
			continue
		}
		if now.Sub(rec.LastSeen) > s.idleTTL {
			delete(s.records, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
