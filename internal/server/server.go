// Package server exposes the streaming chat endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Addr              string
	RateLimitPerMin   int
	RateLimitBurst    int
	ReadHeaderTimeout time.Duration
	Status            StatusInfo
}

// Server owns the HTTP listener lifecycle.
type Server struct {
	server      *http.Server
	logger      *slog.Logger
	cancelScope context.CancelFunc
}

func New(cfg Config, streamer Streamer, logger *slog.Logger) (*Server, error) {
	if cfg.Addr == "" {
		return nil, errors.New("new server: empty address")
	}
	if streamer == nil {
		return nil, errors.New("new server: nil streamer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}

	scopeCtx, cancelScope := context.WithCancel(context.Background())
	s := &Server{logger: logger, cancelScope: cancelScope}
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, streamer, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return scopeCtx
		},
	}
	return s, nil
}

// Handler builds the routed, logged handler without a listener.
func Handler(cfg Config, streamer Streamer, logger *slog.Logger) http.Handler {
	h := &handlers{
		streamer: streamer,
		limiter:  newUserLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst),
		logger:   logger,
		status:   cfg.Status,
	}
	return requestLoggingMiddleware(logger)(newRouter(h))
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("chat server listening", slog.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve is Start on an existing listener, for callers that need the bound port.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("chat server listening", slog.String("addr", l.Addr().String()))
	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown cancels in-flight turns and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelScope()
	return s.server.Shutdown(ctx)
}
