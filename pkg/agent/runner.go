package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/internal/tracing"
	"github.com/harun/agentcore/pkg/classifier"
	"github.com/harun/agentcore/pkg/provider"
	"github.com/harun/agentcore/pkg/toolexecutor"
	"github.com/harun/agentcore/pkg/turn"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "agentcore/agent"

// Runner drives single turns: classify the prompt, run the selected tools, then ask
// the model for a reply over the rendered event log.
type Runner struct {
	classifier    classifier.Classifier
	provider      provider.Provider
	toolExecutor  *toolexecutor.ToolExecutor
	logger        zerolog.Logger
	model         string
	systemMessage string
	maxTokens     int
	temperature   float64
	streamBuffer  int
}

// Config holds runner configuration
type Config struct {
	Provider provider.Provider
	// Classifier defaults to one that never selects a tool.
	Classifier classifier.Classifier
	// ToolExecutor supplies the tools of requests that carry none.
	ToolExecutor         *toolexecutor.ToolExecutor
	Logger               zerolog.Logger
	DefaultModel         string
	DefaultSystemMessage string
	MaxTokens            int
	Temperature          float64
	StreamBuffer         int
}

// NewRunner creates a new turn runner
func NewRunner(cfg Config) (*Runner, error) {
	observability.EnsureRegistered()

	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}

	r := &Runner{
		classifier:    cfg.Classifier,
		provider:      cfg.Provider,
		toolExecutor:  cfg.ToolExecutor,
		logger:        cfg.Logger,
		model:         cfg.DefaultModel,
		systemMessage: cfg.DefaultSystemMessage,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		streamBuffer:  cfg.StreamBuffer,
	}
	if r.classifier == nil {
		r.classifier = classifier.Static{}
	}
	if r.model == "" {
		r.model = DefaultModel
	}
	if r.systemMessage == "" {
		r.systemMessage = DefaultSystemMessage
	}
	if r.streamBuffer <= 0 {
		r.streamBuffer = DefaultStreamBuffer
	}

	return r, nil
}

// prepared is a turn after the user input, classification and tool steps.
type prepared struct {
	state          turn.State
	model          string
	request        provider.Request
	classification turn.Record
}

// prepare appends the user input, classifies it, runs the tools and renders the
// model request. It never fails: a classification error means no tools run.
func (r *Runner) prepare(ctx context.Context, req TurnRequest, logger zerolog.Logger) prepared {
	state := turn.State{}
	if req.State != nil {
		state = req.State.Clone()
	}
	if req.SystemMessage != "" {
		state.SystemMessage = req.SystemMessage
	}

	model := req.Model
	if model == "" {
		model = r.model
	}

	tools := req.Tools
	if tools == nil && r.toolExecutor != nil {
		tools = r.toolExecutor.Definitions()
	}

	state = turn.Append(state, turn.IntentUserInput, req.Prompt)

	intents, classification, err := r.classifier.Classify(ctx, req.Prompt, model, tools)
	if err != nil {
		logger.Warn().Err(err).Msg("Classification failed, continuing without tools")
		intents = nil
	}
	logger.Debug().Int("intent_count", len(intents)).Msg("Prompt classified")

	state = toolexecutor.ExecuteTools(ctx, intents, state, tools)

	systemMessage := state.SystemMessage
	if systemMessage == "" {
		systemMessage = r.systemMessage
	}

	return prepared{
		state: state,
		model: model,
		request: provider.Request{
			Model:        model,
			SystemPrompt: systemMessage,
			Context:      turn.Render(state),
			MaxTokens:    r.maxTokens,
			Temperature:  r.temperature,
		},
		classification: classification,
	}
}

// RunTurn executes one turn and returns the model reply with the final state.
// Model failures are reported in the result, never as an error.
func (r *Runner) RunTurn(ctx context.Context, req TurnRequest) TurnResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx, turnID := tracing.NewTurnContext(ctx)
	ctx, span := tracing.StartSpan(ctx, tracerName, "turn.run", attribute.String("turn_id", turnID))
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, r.logger)
	start := time.Now()

	p := r.prepare(ctx, req, logger)
	span.SetAttributes(attribute.String("model", p.model))

	result := r.complete(ctx, p, logger)

	success := result.Tokens != nil
	if !success {
		tracing.FailSpan(span, nil, result.Content)
	}
	r.finish(ctx, "buffered", start, success, result.State, logger)

	return result
}

func (r *Runner) complete(ctx context.Context, p prepared, logger zerolog.Logger) TurnResult {
	state := p.state

	response, err := r.provider.Call(ctx, p.request)
	var content string
	if err == nil {
		content, err = response.Text()
	}
	if err != nil {
		message := fmt.Sprintf("LLM call failed: %v", err)
		logger.Error().Err(err).Str("model", p.model).Msg("LLM call failed")

		state = turn.Append(state, turn.IntentLLMError, message)
		state.Usage = turn.Merge(turn.Record{}, p.classification)
		return TurnResult{Content: message, State: state}
	}

	state = turn.Append(state, turn.IntentLMResponse, content,
		turn.WithMetadata(turn.Metadata{turn.MetadataModel: p.model}),
	)
	state.Usage = turn.Merge(response.Usage, p.classification)

	tokens := response.Usage
	return TurnResult{
		Content: content,
		State:   state,
		Tokens:  &tokens,
	}
}

func (r *Runner) finish(ctx context.Context, mode string, start time.Time, success bool, state turn.State, logger zerolog.Logger) {
	duration := time.Since(start)
	status := "success"
	if !success {
		status = "error"
	}

	observability.RecordTurn(mode, duration, success, state.Len())
	observability.RecordTokens(state.Usage.PromptTokens, state.Usage.CompletionTokens)
	observability.RecordTurnAudit(ctx, mode, status, map[string]interface{}{
		"events":       state.Len(),
		"total_tokens": state.Usage.TotalTokens,
	})

	logger.Info().
		Str("mode", mode).
		Str("status", status).
		Int("event_count", state.Len()).
		Int("total_tokens", state.Usage.TotalTokens).
		Dur("duration", duration).
		Msg("Turn completed")
}
