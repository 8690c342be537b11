package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Path is where Server exposes the collector.
const Path = "/metrics"

// Server exposes a Collector over HTTP while a command runs.
type Server struct {
	listener net.Listener
	server   *http.Server
}

// Serve starts serving c on addr, e.g. "127.0.0.1:9464" or "127.0.0.1:0".
func Serve(addr string, c *Collector) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(Path, c.Handler())
	s := &Server{
		listener: listener,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	go func() {
		_ = s.server.Serve(listener)
	}()
	return s, nil
}

// URL is the scrape URL.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + Path
}

// Close stops the server.
func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
	}
}
