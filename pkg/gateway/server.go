// Package gateway exposes the turn runner over HTTP: buffered turns as JSON,
// streaming turns as server-sent events or websocket frames.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/pkg/agent"
	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	maxRequestBytes        = 4 << 20
)

// Server is the HTTP gateway in front of a turn runner
type Server struct {
	addr            string
	runner          *agent.Runner
	tools           *toolexecutor.ToolExecutor
	auth            *AuthHandler
	limiter         *RateLimiter
	clients         *ClientRegistry
	upgrader        websocket.Upgrader
	handler         http.Handler
	server          *http.Server
	listener        net.Listener
	logger          zerolog.Logger
	shutdownTimeout time.Duration
	isShuttingDown  bool
	shutdownMu      sync.RWMutex
	inFlightReqs    sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Host string
	// Port 0 picks a free port; Addr reports it after Start.
	Port         int
	SharedSecret string
	Runner       *agent.Runner
	// Tools is the registry listed by /v1/tools. It should be the runner's.
	Tools             *toolexecutor.ToolExecutor
	RequestsPerMinute int
	MaxConcurrent     int
	ShutdownTimeout   time.Duration
	Logger            zerolog.Logger
}

// NewServer creates a new gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("agent runner is required")
	}
	if cfg.Tools == nil {
		cfg.Tools = toolexecutor.New()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	observability.EnsureRegistered()

	s := &Server{
		addr:            net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		runner:          cfg.Runner,
		tools:           cfg.Tools,
		auth:            NewAuthHandler(cfg.SharedSecret),
		limiter:         NewRateLimiter(cfg.RequestsPerMinute, cfg.MaxConcurrent),
		clients:         NewClientRegistry(),
		logger:          cfg.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		upgrader: websocket.Upgrader{
			// Access is gated by the shared secret rather than the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.handler = s.routes()

	if !s.auth.Enabled() {
		s.logger.Warn().Msg("Gateway shared secret is empty, requests are not authenticated")
	}

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/turn", s.guard(s.handleTurn))
	mux.Handle("POST /v1/turn/stream", s.guard(s.handleTurnStream))
	mux.Handle("GET /v1/ws", s.guard(s.handleWebSocket))
	mux.Handle("GET /v1/tools", s.guard(s.handleTools))
	mux.Handle("GET /v1/clients", s.guard(s.handleClients))
	mux.Handle("GET /metrics", observability.MetricsHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Handler returns the server's routes, for mounting or testing without Start.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Starting gateway server")

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Addr returns the bound address after Start, or the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop refuses new requests, waits for in-flight turns up to the shutdown
// timeout, then closes websocket clients and the listener.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight turns completed")
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.clients.CloseAll()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Gateway server stopped")
	return nil
}

// GetConnectedClients returns information about connected websocket clients
func (s *Server) GetConnectedClients() []ClientInfo {
	return s.clients.GetConnectedClients()
}
