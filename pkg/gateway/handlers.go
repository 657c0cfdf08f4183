package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/internal/tracing"
	"github.com/harun/agentcore/pkg/agent"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// guard wraps next with the shutdown check, request tracing, the shared secret
// check and in-flight accounting.
func (s *Server) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		s.inFlightReqs.Add(1)
		s.shutdownMu.RUnlock()
		defer s.inFlightReqs.Done()

		ctx := requestContext(r)
		w.Header().Set(TraceIDHeader, tracing.GetTraceID(ctx))

		if !s.auth.Authorize(r) {
			observability.RecordSecurityAudit(ctx, "gateway.auth", remoteHost(r), "denied", map[string]interface{}{
				"path": r.URL.Path,
			})
			logger := tracing.LoggerFromContext(ctx, s.logger)
			logger.Warn().
				Str("path", r.URL.Path).
				Str("ip", remoteHost(r)).
				Msg("Rejected unauthenticated request")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next(w, r.WithContext(ctx))
	})
}

// requestContext attaches the caller's trace and request IDs, generating any
// that are missing.
func requestContext(r *http.Request) context.Context {
	traceID := r.Header.Get(TraceIDHeader)
	if traceID == "" {
		traceID = tracing.NewTraceID()
	}
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = tracing.NewTraceID()
	}
	ctx := tracing.WithTraceID(r.Context(), traceID)
	return tracing.WithRequestID(ctx, requestID)
}

// admit applies the per-client rate limit. It writes the refusal itself and
// returns ok=false when the request must stop.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) (release func(), ok bool) {
	release, reason, ok := s.limiter.Acquire(remoteHost(r))
	if !ok {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, reason)
		return nil, false
	}
	return release, true
}

// decodeTurnRequest reads a turn request body. Tools always come from the
// server's registry.
func decodeTurnRequest(r *http.Request, w http.ResponseWriter) (agent.TurnRequest, error) {
	var req agent.TurnRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return req, errors.New("prompt is required")
	}
	req.Tools = nil
	return req, nil
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTurnRequest(r, w)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := s.admit(w, r)
	if !ok {
		return
	}
	defer release()

	logger := tracing.LoggerFromContext(r.Context(), s.logger)
	logger.Debug().Str("model", req.Model).Msg("Gateway received turn")

	result := s.runner.RunTurn(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTurnStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, err := decodeTurnRequest(r, w)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := s.admit(w, r)
	if !ok {
		return
	}
	defer release()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := tracing.LoggerFromContext(ctx, s.logger)
	chunks := s.runner.StreamTurn(ctx, req)
	for chunk := range chunks {
		if err := writeSSE(w, chunk); err != nil {
			logger.Debug().Err(err).Msg("Stream client gone")
			cancel()
			break
		}
		flusher.Flush()
	}
	drain(chunks)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	release, ok := s.admit(w, r)
	if !ok {
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, err := gonanoid.New()
	if err != nil {
		_ = conn.Close()
		s.logger.Error().Err(err).Msg("Failed to generate client ID")
		return
	}

	now := time.Now()
	client := &Client{
		ID:           clientID,
		Conn:         conn,
		ConnectedAt:  now,
		LastActivity: now,
		IPAddress:    remoteHost(r),
	}
	s.clients.Add(client)

	ctx, cancel := context.WithCancel(tracing.WithClientID(r.Context(), clientID))
	logger := tracing.LoggerFromContext(ctx, s.logger)
	logger.Info().Str("ip", client.IPAddress).Msg("Client connected")

	defer func() {
		cancel()
		_ = conn.Close()
		s.clients.Remove(clientID)
		logger.Info().Msg("Client disconnected")
	}()

	s.serveWebSocketTurn(ctx, cancel, client, logger)
}

// serveWebSocketTurn reads one turn request, writes each chunk as a JSON text
// frame and closes normally. A client that disconnects cancels the turn.
func (s *Server) serveWebSocketTurn(ctx context.Context, cancel context.CancelFunc, client *Client, logger zerolog.Logger) {
	conn := client.Conn

	var req agent.TurnRequest
	conn.SetReadLimit(maxRequestBytes)
	if err := conn.ReadJSON(&req); err != nil {
		logger.Debug().Err(err).Msg("Failed to read turn request")
		writeClose(conn, websocket.CloseUnsupportedData, "invalid turn request")
		return
	}
	s.clients.UpdateActivity(client.ID)

	if strings.TrimSpace(req.Prompt) == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "prompt is required")
		return
	}
	req.Tools = nil

	// The reader notices the client going away while chunks are written.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	chunks := s.runner.StreamTurn(ctx, req)
	for chunk := range chunks {
		if err := conn.WriteJSON(chunk); err != nil {
			logger.Debug().Err(err).Msg("Failed to write chunk")
			cancel()
			break
		}
		s.clients.UpdateActivity(client.ID)
	}
	drain(chunks)

	writeClose(conn, websocket.CloseNormalClosure, "turn complete")
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ToolsResponse{Tools: s.tools.Definitions()})
}

func (s *Server) handleClients(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.clients.GetConnectedClients())
}

func drain(chunks <-chan agent.Chunk) {
	for range chunks {
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
