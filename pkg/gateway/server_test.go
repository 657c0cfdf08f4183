package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/agentcore/pkg/agent"
	"github.com/harun/agentcore/pkg/provider"
	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/harun/agentcore/pkg/turn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []provider.Request
	callErr  error
	block    chan struct{}
}

func (f *fakeProvider) Provider() string { return "fake" }

func (f *fakeProvider) Call(ctx context.Context, request provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.mu.Unlock()

	if f.callErr != nil {
		return nil, f.callErr
	}
	return &provider.Response{
		Content: "It is sunny.",
		Usage:   turn.Record{PromptTokens: 10, CompletionTokens: 3},
	}, nil
}

func (f *fakeProvider) Stream(ctx context.Context, request provider.Request) (provider.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, request)
	f.mu.Unlock()

	return &fakeStream{
		ctx:   ctx,
		block: f.block,
		fragments: []provider.Fragment{
			{Content: "It is "},
			{Content: "sunny.", Usage: &turn.Record{InputTokens: 10, OutputTokens: 3}},
		},
	}, nil
}

type fakeStream struct {
	ctx       context.Context
	block     chan struct{}
	fragments []provider.Fragment
	pos       int
	err       error
}

func (s *fakeStream) Next() bool {
	if s.pos == 1 && s.block != nil {
		select {
		case <-s.block:
		case <-s.ctx.Done():
			s.err = s.ctx.Err()
			return false
		}
	}
	if s.pos >= len(s.fragments) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Current() provider.Fragment { return s.fragments[s.pos-1] }
func (s *fakeStream) Err() error                 { return s.err }
func (s *fakeStream) Close() error               { return nil }

func setupTestServer(t *testing.T, p *fakeProvider, cfg Config) (*Server, *httptest.Server) {
	t.Helper()

	tools := toolexecutor.New()
	require.NoError(t, tools.RegisterTool(toolexecutor.ToolDefinition{
		Name:        "get_weather",
		Description: "Get the weather for a city",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "city", Type: "string", Description: "City name", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "Sunny", nil
		},
	}))

	runner, err := agent.NewRunner(agent.Config{
		Provider:     p,
		ToolExecutor: tools,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	cfg.Runner = runner
	cfg.Tools = tools
	cfg.Logger = zerolog.Nop()
	server, err := NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func postJSON(t *testing.T, url string, body string, header http.Header) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type sseEvent struct {
	name  string
	chunk agent.Chunk
}

func readSSE(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()

	var events []sseEvent
	var name string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var chunk agent.Chunk
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk))
			events = append(events, sseEvent{name: name, chunk: chunk})
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestNewServer(t *testing.T) {
	t.Run("should require a runner", func(t *testing.T) {
		_, err := NewServer(Config{Port: 8080})
		assert.ErrorContains(t, err, "agent runner is required")
	})

	t.Run("should reject an invalid port", func(t *testing.T) {
		_, err := NewServer(Config{Port: 70000})
		assert.ErrorContains(t, err, "invalid port")
	})
}

func TestHandleTurn(t *testing.T) {
	t.Run("should run a buffered turn", func(t *testing.T) {
		p := &fakeProvider{}
		_, ts := setupTestServer(t, p, Config{})

		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"Weather in Tokyo?"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(TraceIDHeader))

		var result agent.TurnResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "It is sunny.", result.Content)
		require.Len(t, result.State.Events, 2)
		assert.Equal(t, turn.IntentUserInput, result.State.Events[0].Intent)
		assert.Equal(t, turn.IntentLMResponse, result.State.Events[1].Intent)
		assert.Equal(t, turn.Usage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13}, result.State.Usage)
		require.NotNil(t, result.Tokens)
	})

	t.Run("should continue from a prior state", func(t *testing.T) {
		p := &fakeProvider{}
		_, ts := setupTestServer(t, p, Config{})

		body := `{"prompt":"And tomorrow?","systemMessage":"Be brief.","state":{"events":[{"intent":"user_input","content":"Weather in Tokyo?"},{"intent":"lm_response","content":"Sunny."}]}}`
		resp := postJSON(t, ts.URL+"/v1/turn", body, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result agent.TurnResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Len(t, result.State.Events, 4)
		assert.Equal(t, "Be brief.", result.State.SystemMessage)

		require.Len(t, p.requests, 1)
		assert.Equal(t, "Be brief.", p.requests[0].SystemPrompt)
		assert.Contains(t, p.requests[0].Context, "Weather in Tokyo?")
	})

	t.Run("should report model failures in the result", func(t *testing.T) {
		p := &fakeProvider{callErr: errors.New("boom")}
		_, ts := setupTestServer(t, p, Config{})

		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"hi"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result agent.TurnResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "LLM call failed: boom", result.Content)
		assert.Nil(t, result.Tokens)
	})

	t.Run("should reject bad requests", func(t *testing.T) {
		_, ts := setupTestServer(t, &fakeProvider{}, Config{})

		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":""}`, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = postJSON(t, ts.URL+"/v1/turn", `not json`, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body.Error, "invalid request body")
	})

	t.Run("should reject other methods", func(t *testing.T) {
		_, ts := setupTestServer(t, &fakeProvider{}, Config{})

		resp, err := http.Get(ts.URL + "/v1/turn")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("should rate limit per client", func(t *testing.T) {
		_, ts := setupTestServer(t, &fakeProvider{}, Config{RequestsPerMinute: 1})

		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"one"}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = postJSON(t, ts.URL+"/v1/turn", `{"prompt":"two"}`, nil)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	})
}

func TestSharedSecret(t *testing.T) {
	_, ts := setupTestServer(t, &fakeProvider{}, Config{SharedSecret: "s3cret"})

	t.Run("should reject a missing secret", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"hi"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should log rejected requests", func(t *testing.T) {
		runner, err := agent.NewRunner(agent.Config{Provider: &fakeProvider{}, Logger: zerolog.Nop()})
		require.NoError(t, err)

		var buf bytes.Buffer
		server, err := NewServer(Config{
			SharedSecret: "s3cret",
			Runner:       runner,
			Logger:       zerolog.New(&buf),
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/turn", strings.NewReader(`{"prompt":"hi"}`))
		server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), "Rejected unauthenticated request")
		assert.Contains(t, buf.String(), `"path":"/v1/turn"`)
	})

	t.Run("should accept the secret header", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"hi"}`, http.Header{SecretHeader: {"s3cret"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("should leave health checks open", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("should echo the caller's trace id", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"hi"}`, http.Header{
			SecretHeader:  {"s3cret"},
			TraceIDHeader: {"trace-123"},
		})
		assert.Equal(t, "trace-123", resp.Header.Get(TraceIDHeader))
	})
}

func TestHandleTurnStream(t *testing.T) {
	t.Run("should stream chunks as server-sent events", func(t *testing.T) {
		_, ts := setupTestServer(t, &fakeProvider{}, Config{})

		resp := postJSON(t, ts.URL+"/v1/turn/stream", `{"prompt":"Weather in Tokyo?"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		events := readSSE(t, resp)
		require.Len(t, events, 4)

		var names []string
		for _, e := range events {
			names = append(names, e.name)
			assert.Equal(t, e.name, string(e.chunk.Type))
		}
		assert.Equal(t, []string{"memory", "content", "content", "complete"}, names)

		assert.Equal(t, "It is ", events[1].chunk.Content)
		assert.Equal(t, "sunny.", events[2].chunk.Content)

		final := events[3].chunk.State
		require.NotNil(t, final)
		last, ok := final.Last()
		require.True(t, ok)
		assert.Equal(t, "It is sunny.", last.Content)
		assert.Equal(t, 13, final.Usage.TotalTokens)
	})

	t.Run("should cancel the turn when the client leaves", func(t *testing.T) {
		p := &fakeProvider{block: make(chan struct{})}
		_, ts := setupTestServer(t, p, Config{})

		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/v1/turn/stream", bytes.NewBufferString(`{"prompt":"hi"}`))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "event: memory\n", line)

		cancel()

		// Closing the test server waits for the handler, so it must return
		// even though the model never finishes.
		done := make(chan struct{})
		go func() {
			ts.Close()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("stream handler did not stop after the client left")
		}
	})
}

func TestHandleWebSocket(t *testing.T) {
	t.Run("should stream chunks as frames", func(t *testing.T) {
		server, ts := setupTestServer(t, &fakeProvider{}, Config{SharedSecret: "s3cret"})

		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{SecretHeader: {"s3cret"}})
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

		require.Eventually(t, func() bool { return len(server.GetConnectedClients()) == 1 }, time.Second, 10*time.Millisecond)
		assert.NotEmpty(t, server.GetConnectedClients()[0].ID)

		require.NoError(t, conn.WriteJSON(agent.TurnRequest{Prompt: "Weather in Tokyo?"}))

		var types []agent.ChunkType
		for {
			var chunk agent.Chunk
			if err := conn.ReadJSON(&chunk); err != nil {
				assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
				break
			}
			types = append(types, chunk.Type)
		}
		assert.Equal(t, []agent.ChunkType{agent.ChunkMemory, agent.ChunkContent, agent.ChunkContent, agent.ChunkComplete}, types)

		require.Eventually(t, func() bool { return len(server.GetConnectedClients()) == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("should reject an unauthenticated upgrade", func(t *testing.T) {
		_, ts := setupTestServer(t, &fakeProvider{}, Config{SharedSecret: "s3cret"})

		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("should close on an invalid request", func(t *testing.T) {
		_, ts := setupTestServer(t, &fakeProvider{}, Config{})

		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]string{"prompt": " "}))
		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	})
}

func TestHandleTools(t *testing.T) {
	_, ts := setupTestServer(t, &fakeProvider{}, Config{})

	resp, err := http.Get(ts.URL + "/v1/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ToolsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tools, 1)
	assert.Equal(t, "get_weather", body.Tools[0].Name)
	assert.Equal(t, "city", body.Tools[0].Parameters[0].Name)
}

func TestServerLifecycle(t *testing.T) {
	t.Run("should start on a free port and stop", func(t *testing.T) {
		server, _ := setupTestServer(t, &fakeProvider{}, Config{Host: "127.0.0.1", Port: 0})

		require.NoError(t, server.Start())
		resp, err := http.Get("http://" + server.Addr() + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, server.Stop())

		_, err = http.Get("http://" + server.Addr() + "/healthz")
		assert.Error(t, err)
	})

	t.Run("should refuse turns while shutting down", func(t *testing.T) {
		server, ts := setupTestServer(t, &fakeProvider{}, Config{})
		require.NoError(t, server.Stop())

		resp := postJSON(t, ts.URL+"/v1/turn", `{"prompt":"hi"}`, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSSE(&buf, agent.Chunk{Type: agent.ChunkContent, Content: "hi"}))
	assert.Equal(t, "event: content\ndata: {\"type\":\"content\",\"content\":\"hi\"}\n\n", buf.String())
}
