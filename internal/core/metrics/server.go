package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/thenervelab/hippius-libp2p/internal/util/logger"
)

var log = logger.Named("metrics")

// StatsSnapshot is the JSON shape returned by GET /stats: the same
// counters /metrics exposes, read back out in a self-describing record
// for operators who would rather not scrape Prometheus text format.
type StatsSnapshot struct {
	Network struct {
		PeersConnected int64 `json:"peers_connected"`
		PeersEverSeen  int64 `json:"peers_ever_seen"`
	} `json:"network"`
	PubSub struct {
		MessagesSent     float64 `json:"messages_sent"`
		MessagesReceived float64 `json:"messages_received"`
		BytesSent        float64 `json:"bytes_sent"`
		BytesReceived    float64 `json:"bytes_received"`
		Dropped          float64 `json:"dropped"`
	} `json:"pubsub"`
	Signaling struct {
		Clients         int64   `json:"clients"`
		FramesForwarded float64 `json:"frames_forwarded"`
		FramesDropped   float64 `json:"frames_dropped"`
	} `json:"signaling"`
}

// Server exposes the metrics registry over HTTP on its own port,
// independent of the node's P2P listeners.
type Server struct {
	metrics *Metrics
	httpSrv *http.Server
}

// NewServer builds (but does not start) the metrics HTTP server.
func NewServer(m *Metrics, addr string) *Server {
	s := &Server{metrics: m}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", s.handleStats)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.httpSrv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var snap StatsSnapshot

	snap.Network.PeersConnected = int64(gaugeValue(s.metrics.PeersConnected))
	snap.Network.PeersEverSeen = int64(counterValue(s.metrics.PeersEverSeen))
	snap.PubSub.MessagesSent = sumVec(s.metrics.PubSubMessagesSent)
	snap.PubSub.MessagesReceived = sumVec(s.metrics.PubSubMessagesReceived)
	snap.PubSub.BytesSent = sumVec(s.metrics.PubSubBytesSent)
	snap.PubSub.BytesReceived = sumVec(s.metrics.PubSubBytesReceived)
	snap.PubSub.Dropped = sumVec(s.metrics.PubSubDroppedTotal)
	snap.Signaling.Clients = int64(gaugeValue(s.metrics.SignalingClients))
	snap.Signaling.FramesForwarded = counterValue(s.metrics.SignalingFramesForwarded)
	snap.Signaling.FramesDropped = counterValue(s.metrics.SignalingFramesDroppedTotal)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Warnw("encode stats response failed", "err", err)
	}
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	_ = g.Write(&m)
	return m.GetGauge().GetValue()
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	_ = c.Write(&m)
	return m.GetCounter().GetValue()
}

func sumVec(vec *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()
	var total float64
	for metric := range ch {
		var m dto.Metric
		_ = metric.Write(&m)
		total += m.GetCounter().GetValue()
	}
	return total
}
