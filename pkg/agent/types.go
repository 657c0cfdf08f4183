package agent

import (
	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/harun/agentcore/pkg/turn"
)

// Defaults applied when neither the request nor the runner config names a value.
const (
	DefaultModel         = "openai:gpt-4.1-nano"
	DefaultSystemMessage = "You are a helpful AI assistant."
	DefaultStreamBuffer  = 16
)

// TurnRequest is the input of one turn.
type TurnRequest struct {
	Prompt string `json:"prompt"`
	// Model is a "<provider>:<model>" identifier; empty uses the runner default.
	Model string `json:"model,omitempty"`
	// SystemMessage, when set, is stored as the state's system message override.
	SystemMessage string `json:"systemMessage,omitempty"`
	// State is the prior turn state to continue from; nil starts an empty log.
	State *turn.State `json:"state,omitempty"`
	// Tools overrides the runner's registry for this turn.
	Tools []toolexecutor.ToolDefinition `json:"-"`
}

// TurnResult is the outcome of a buffered turn. Tokens holds the raw usage of the
// model call and is nil when the call failed.
type TurnResult struct {
	Content string       `json:"content"`
	State   turn.State   `json:"state"`
	Tokens  *turn.Record `json:"tokens,omitempty"`
}

// ChunkType tags a streaming chunk.
type ChunkType string

const (
	ChunkMemory   ChunkType = "memory"
	ChunkContent  ChunkType = "content"
	ChunkComplete ChunkType = "complete"
	ChunkError    ChunkType = "error"
)

// Chunk is one record of a streaming turn. memory and complete chunks carry State,
// content chunks carry Content and error chunks carry Error.
type Chunk struct {
	Type    ChunkType   `json:"type"`
	State   *turn.State `json:"state,omitempty"`
	Content string      `json:"content,omitempty"`
	Error   string      `json:"error,omitempty"`
}
