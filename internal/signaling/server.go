package signaling

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/thenervelab/hippius-libp2p/internal/core/metrics"
)

// Server accepts WebSocket clients on /signal and hands each one to
// the Hub as a new registry participant.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer builds a signaling server listening on addr, backed by a
// fresh Hub. Call Run to start both the hub and the HTTP listener.
func NewServer(addr string, m *metrics.Metrics) *Server {
	s := &Server{
		hub: NewHub(m),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/signal", s.handleUpgrade)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn, s.hub)
	go c.run()
}

// Run starts the hub's registry goroutine and the HTTP listener,
// blocking until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

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
