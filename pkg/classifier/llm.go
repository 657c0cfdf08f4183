package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/pkg/provider"
	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/harun/agentcore/pkg/turn"
	"github.com/rs/zerolog"
)

const systemPrompt = `You decide which tools to call before an assistant answers the user.
Reply with a single JSON object and nothing else:
{"intents": [{"intent": "<tool name>", "args": {<arguments>}}]}
List the calls in the order they should run. Use only the tools listed below and follow their parameter schemas.
If no tool is needed reply {"intents": []}.`

// LLMClassifier asks a model which tools to call.
type LLMClassifier struct {
	provider provider.Provider
	model    string
	logger   zerolog.Logger
}

// NewLLMClassifier creates a classifier backed by p. When model is non-empty it
// overrides the turn's model for classification calls.
func NewLLMClassifier(p provider.Provider, model string, logger zerolog.Logger) *LLMClassifier {
	return &LLMClassifier{
		provider: p,
		model:    model,
		logger:   logger.With().Str("component", "classifier").Logger(),
	}
}

type toolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Classify implements Classifier. With no tools no call is made.
func (c *LLMClassifier) Classify(ctx context.Context, prompt, model string, tools []toolexecutor.ToolDefinition) ([]turn.ToolIntent, turn.Record, error) {
	if len(tools) == 0 {
		return nil, turn.Record{}, nil
	}
	if c.model != "" {
		model = c.model
	}

	specs := make([]toolSpec, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, toolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Schema(),
		})
	}
	toolsJSON, err := json.Marshal(specs)
	if err != nil {
		return nil, turn.Record{}, fmt.Errorf("failed to encode tools: %w", err)
	}

	start := time.Now()
	response, err := c.provider.Call(ctx, provider.Request{
		Model:        model,
		SystemPrompt: systemPrompt + "\n\nTools:\n" + string(toolsJSON),
		Context:      prompt,
	})
	if err != nil {
		observability.RecordClassification(false)
		return nil, turn.Record{}, fmt.Errorf("classification call failed: %w", err)
	}

	text, err := response.Text()
	if err != nil {
		observability.RecordClassification(false)
		return nil, response.Usage, err
	}

	intents, err := ParseOutput(text)
	if err != nil {
		observability.RecordClassification(false)
		return nil, response.Usage, err
	}

	observability.RecordClassification(true)
	c.logger.Debug().
		Int("intent_count", len(intents)).
		Dur("duration", time.Since(start)).
		Msg("Prompt classified")

	return intents, response.Usage, nil
}
