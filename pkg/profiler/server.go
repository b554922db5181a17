// Package profiler serves pprof and status endpoints for long-running
// commands.
package profiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/rs/zerolog"
)

// Server is a debug HTTP server bound to one address.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	listener   net.Listener
	addr       string
	logger     zerolog.Logger
}

// New creates a server for addr, e.g. "127.0.0.1:6060". Port 0 picks a free
// port.
func New(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return &Server{
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		mux:    mux,
		addr:   addr,
		logger: logger,
	}
}

// HandleJSON serves the value returned by fn as JSON at pattern. Register
// handlers before Start.
func (s *Server) HandleJSON(pattern string, fn func(ctx context.Context) any) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fn(r.Context())); err != nil {
			s.logger.Debug().Err(err).Str("path", pattern).Msg("write status response")
		}
	})
}

// Start listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.logger.Info().Str("addr", s.Addr()).Msg("starting debug server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("debug server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down debug server")
	return s.httpServer.Shutdown(ctx)
}
