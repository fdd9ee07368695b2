// Package metrics holds the node's Prometheus registry and the counters
// and gauges named across the rest of the node: peer churn, pubsub
// traffic, signaling activity, evictions, and dial outcomes. Every
// update goes through an atomic primitive or a labeled vector, never a
// lock, so recording a metric can never block the Controller loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the complete set of counters and gauges the node exposes.
type Metrics struct {
	Registry *prometheus.Registry

	PeersConnected prometheus.Gauge
	PeersEverSeen  prometheus.Counter

	PubSubMessagesSent     *prometheus.CounterVec // label: topic
	PubSubMessagesReceived *prometheus.CounterVec // label: topic
	PubSubBytesSent        *prometheus.CounterVec // label: topic
	PubSubBytesReceived    *prometheus.CounterVec // label: topic
	PubSubDroppedTotal     *prometheus.CounterVec // label: topic

	SignalingClients            prometheus.Gauge
	SignalingFramesForwarded    prometheus.Counter
	SignalingFramesDroppedTotal prometheus.Counter

	Evictions *prometheus.CounterVec // label: reason

	DialAttempts *prometheus.CounterVec // label: outcome
}

// New builds and registers every metric exactly once.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		PeersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hippius", Subsystem: "node", Name: "peers_connected",
			Help: "Number of peers currently connected.",
		}),
		PeersEverSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "node", Name: "peers_ever_seen_total",
			Help: "Total distinct peers ever observed.",
		}),
		PubSubMessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "pubsub", Name: "messages_sent_total",
			Help: "PubSub messages sent, by topic.",
		}, []string{"topic"}),
		PubSubMessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "pubsub", Name: "messages_received_total",
			Help: "PubSub messages received, by topic.",
		}, []string{"topic"}),
		PubSubBytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "pubsub", Name: "bytes_sent_total",
			Help: "PubSub bytes sent, by topic.",
		}, []string{"topic"}),
		PubSubBytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "pubsub", Name: "bytes_received_total",
			Help: "PubSub bytes received, by topic.",
		}, []string{"topic"}),
		PubSubDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "pubsub", Name: "dropped_total",
			Help: "PubSub messages dropped from a full outbound peer queue, by topic.",
		}, []string{"topic"}),
		SignalingClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hippius", Subsystem: "signaling", Name: "clients",
			Help: "Number of registered signaling clients.",
		}),
		SignalingFramesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "signaling", Name: "frames_forwarded_total",
			Help: "Total signaling frames forwarded between clients.",
		}),
		SignalingFramesDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "signaling", Name: "frames_dropped_total",
			Help: "Total signaling frames dropped because their addressed recipient was not registered.",
		}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "node", Name: "evictions_total",
			Help: "Peer evictions, by reason.",
		}, []string{"reason"}),
		DialAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hippius", Subsystem: "transport", Name: "dial_attempts_total",
			Help: "Dial attempts, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.PeersConnected,
		m.PeersEverSeen,
		m.PubSubMessagesSent,
		m.PubSubMessagesReceived,
		m.PubSubBytesSent,
		m.PubSubBytesReceived,
		m.PubSubDroppedTotal,
		m.SignalingClients,
		m.SignalingFramesForwarded,
		m.SignalingFramesDroppedTotal,
		m.Evictions,
		m.DialAttempts,
	)

	return m
}
