package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/benaskins/sidecar/internal/metrics"
	"github.com/benaskins/sidecar/internal/supervisor"
)

// Status is what the supervisor reports about its sidecar.
type Status interface {
	State() supervisor.State
	PID() int
	LastError() error
}

type statusResponse struct {
	State     supervisor.State `json:"state"`
	PID       int              `json:"pid,omitempty"`
	LastError string           `json:"last_error,omitempty"`
}

// Server serves sidecar status and Prometheus metrics over loopback TCP.
type Server struct {
	status   Status
	listener net.Listener
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a server reporting on status.
func NewServer(status Status) *Server {
	s := &Server{
		status: status,
		logger: slog.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/status", s.getStatus)
	mux.HandleFunc("GET /v1/health", s.health)
	mux.Handle("GET /metrics", metrics.Handler())

	s.server = &http.Server{Handler: mux}
	return s
}

// Listen binds a TCP address without accepting connections yet.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections on the bound listener until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("serve called before listen")
	}
	s.logger.Info("status endpoint listening", "addr", s.Addr().String())
	return s.server.Serve(s.listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State: s.status.State(),
		PID:   s.status.PID(),
	}
	if err := s.status.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
