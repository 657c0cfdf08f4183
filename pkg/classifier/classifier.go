// Package classifier decides which tools a prompt should trigger.
package classifier

import (
	"context"
	"errors"

	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/harun/agentcore/pkg/turn"
)

// ErrInvalidOutput is returned when a model's classification cannot be parsed.
var ErrInvalidOutput = errors.New("invalid classifier output")

// Classifier maps a prompt to the ordered list of tool intents to execute.
// The returned intent list may be empty.
type Classifier interface {
	Classify(ctx context.Context, prompt, model string, tools []toolexecutor.ToolDefinition) ([]turn.ToolIntent, turn.Record, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, prompt, model string, tools []toolexecutor.ToolDefinition) ([]turn.ToolIntent, turn.Record, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, prompt, model string, tools []toolexecutor.ToolDefinition) ([]turn.ToolIntent, turn.Record, error) {
	return f(ctx, prompt, model, tools)
}

// Static returns the same intents for every prompt with zero usage.
type Static []turn.ToolIntent

// Classify returns a copy of s.
func (s Static) Classify(ctx context.Context, prompt, model string, tools []toolexecutor.ToolDefinition) ([]turn.ToolIntent, turn.Record, error) {
	out := make([]turn.ToolIntent, len(s))
	copy(out, s)
	return out, turn.Record{}, nil
}
