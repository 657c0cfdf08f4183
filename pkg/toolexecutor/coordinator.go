package toolexecutor

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/internal/tracing"
	"github.com/harun/agentcore/pkg/turn"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "agentcore/toolexecutor"

// Failure reasons reported to metrics.
const (
	reasonNotFound = "not_found"
	reasonFailed   = "failed"
	reasonPanic    = "panic"
)

// ExecuteTools runs intents in order against tools and returns state with one event
// appended per executed intent. The "none" sentinel and empty intent names produce no
// event. Lookup, invocation errors and handler panics are recorded as failure events
// and never returned; later intents still run.
func ExecuteTools(ctx context.Context, intents []turn.ToolIntent, state turn.State, tools []ToolDefinition) turn.State {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	for i, ti := range intents {
		switch ti.Intent.Kind() {
		case turn.KindNone:
			continue
		case turn.KindInvalid:
			logger.Warn().Int("index", i).Msg("Skipping intent without a tool name")
			continue
		}

		name := string(ti.Intent)
		tool := findTool(tools, name)
		if tool == nil {
			logger.Warn().Str("tool", name).Msg("Tool not found")
			observability.RecordToolExecution(name, 0, reasonNotFound)
			observability.RecordToolAudit(ctx, name, "error", map[string]interface{}{"reason": reasonNotFound})
			state = turn.AppendToolIntent(state, ti, fmt.Sprintf("Tool execution failed: Tool %s not found", name), nil)
			continue
		}

		state = invoke(ctx, i, tool, ti, state)
	}

	return state
}

func findTool(tools []ToolDefinition, name string) *ToolDefinition {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}

func invoke(ctx context.Context, index int, tool *ToolDefinition, ti turn.ToolIntent, state turn.State) turn.State {
	ctx, span := tracing.StartSpan(ctx, tracerName, "tool.execute",
		attribute.String("tool.name", tool.Name),
		attribute.Int("tool.index", index),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("tool", tool.Name).Logger()
	logger.Debug().Msg("Executing tool")

	start := time.Now()
	output, reason, err := call(ContextWithCall(ctx, Call{Tool: tool.Name, Index: index}), tool, ti.Args)
	duration := time.Since(start)

	observability.RecordToolExecution(tool.Name, duration, reason)

	if err != nil {
		tracing.FailSpan(span, err, reason)
		logger.Error().Err(err).Dur("duration", duration).Msg("Tool execution failed")
		observability.RecordToolAudit(ctx, tool.Name, "error", map[string]interface{}{"reason": reason})
		return turn.AppendToolIntent(state, ti, "Tool execution failed: "+err.Error(), nil)
	}

	logger.Debug().Dur("duration", duration).Msg("Tool execution completed")
	observability.RecordToolAudit(ctx, tool.Name, "success", map[string]interface{}{
		"duration": duration.Milliseconds(),
	})
	return turn.AppendToolIntent(state, ti, output, turn.Metadata{turn.MetadataStatus: string(turn.StatusSuccess)})
}

func call(ctx context.Context, tool *ToolDefinition, args map[string]interface{}) (output, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = ""
			reason = reasonPanic
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
		}
	}()

	if args == nil {
		args = map[string]interface{}{}
	}

	output, err = tool.Handler(ctx, args)
	if err != nil {
		return "", reasonFailed, err
	}
	return output, "", nil
}
