// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"clapper/internal/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the shared HTTP listener for /ws and /metrics.
type Server struct {
	mux    *http.ServeMux
	server *http.Server
	ln     net.Listener
}

// NewServer returns a server with no routes.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	return &Server{
		mux: mux,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// HandleWebSocket mounts ws at /ws.
func (s *Server) HandleWebSocket(ws *WebSocketTransport) {
	s.mux.Handle("/ws", ws)
}

// HandleMetrics mounts the registry at /metrics.
func (s *Server) HandleMetrics(g prometheus.Gatherer) {
	s.mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Start binds the listener and serves in the background. Binding errors
// are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		log.Infof("Transport: Starting HTTP server on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Transport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Shutdown stops accepting connections and waits for handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
