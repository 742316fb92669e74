package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/leefowlercu/veriview-gateway/internal/config"
	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Navigator runs the consensus pipeline
type Navigator interface {
	Navigate(ctx context.Context, url string) types.Verdict
	Alert(ctx context.Context, alert types.Alert) types.AlertResponse
}

// AuditReader exposes the shared audit log
type AuditReader interface {
	Tail(n int) []types.AuditEntry
}

// Server is the HTTP transport for the gateway
type Server struct {
	cfg       config.ServerConfig
	navigator Navigator
	audit     AuditReader
	logger    *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new HTTP server
func New(cfg config.ServerConfig, navigator Navigator, audit AuditReader, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		navigator: navigator,
		audit:     audit,
		logger:    logger,
	}
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/navigate", s.handleNavigate)
	mux.HandleFunc("POST /api/v1/alert", s.handleAlert)
	mux.HandleFunc("GET /api/v1/logs", s.handleLogs)

	return s.withCORS(s.withRequestLog(mux))
}

// Addr returns the address the server is listening on.
// Only valid after Run has started listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s; %w", s.cfg.Address, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("gateway listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed; %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed; %w", err)
	}

	return nil
}
