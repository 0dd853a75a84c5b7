package web

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Server hosts the bookshelf web UI.
type Server struct {
	httpServer *http.Server
}

// NewServer wires the handler into an HTTP server on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks serving requests until the server stops.
func (s *Server) ListenAndServe() error {
	log.Printf("bookshelf web UI listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
