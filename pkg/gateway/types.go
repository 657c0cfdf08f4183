package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/agentcore/pkg/toolexecutor"
)

// SecretHeader carries the shared secret on every authenticated request.
const SecretHeader = "X-Agentcore-Secret"

// Trace headers read from requests and echoed on responses.
const (
	TraceIDHeader   = "X-Trace-Id"
	RequestIDHeader = "X-Request-Id"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToolsResponse is the body of GET /v1/tools
type ToolsResponse struct {
	Tools []toolexecutor.ToolDefinition `json:"tools"`
}

// ClientInfo represents information about a connected websocket client
type ClientInfo struct {
	ID           string    `json:"id"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActivity time.Time `json:"lastActivity"`
	IPAddress    string    `json:"ipAddress"`
	Idle         bool      `json:"idle"`
}

// Client represents a connected websocket client
type Client struct {
	ID           string
	Conn         *websocket.Conn
	ConnectedAt  time.Time
	LastActivity time.Time
	IPAddress    string
}
