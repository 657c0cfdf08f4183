package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/internal/tracing"
	"github.com/harun/agentcore/pkg/turn"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// StreamTurn executes one turn and delivers it as chunks: one memory chunk with the
// state before the model call, a content chunk per non-empty model fragment, then a
// complete chunk with the final state. A failure after the memory chunk ends the
// sequence with one error chunk. The channel is closed when the turn ends.
//
// Cancelling ctx stops delivery and releases the model stream. A consumer that stops
// reading must cancel ctx.
func (r *Runner) StreamTurn(ctx context.Context, req TurnRequest) <-chan Chunk {
	if ctx == nil {
		ctx = context.Background()
	}
	chunks := make(chan Chunk, r.streamBuffer)

	go func() {
		defer close(chunks)
		observability.StreamOpened()
		defer observability.StreamClosed()

		if tracing.GetTraceID(ctx) == "" {
			ctx = tracing.NewRequestContext(ctx)
		}
		ctx, turnID := tracing.NewTurnContext(ctx)
		ctx, span := tracing.StartSpan(ctx, tracerName, "turn.stream", attribute.String("turn_id", turnID))
		defer span.End()

		logger := tracing.LoggerFromContext(ctx, r.logger)
		start := time.Now()

		s := &turnStream{ctx: ctx, out: chunks}
		state, err := r.stream(ctx, req, s, logger)
		switch {
		case errors.Is(err, errConsumerGone):
			logger.Debug().Msg("Stream consumer gone")
			tracing.FailSpan(span, nil, err.Error())
		case err != nil:
			tracing.FailSpan(span, err, "")
			logger.Error().Err(err).Msg("Streaming failed")
			s.send(Chunk{Type: ChunkError, Error: fmt.Sprintf("Streaming failed: %v", err)})
		}
		r.finish(ctx, "stream", start, err == nil, state, logger)
	}()

	return chunks
}

// errConsumerGone ends a stream whose context was cancelled mid-delivery.
var errConsumerGone = errors.New("stream consumer gone")

type turnStream struct {
	ctx context.Context
	out chan<- Chunk
}

func (s *turnStream) send(chunk Chunk) bool {
	select {
	case s.out <- chunk:
		observability.RecordStreamChunk(string(chunk.Type))
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (r *Runner) stream(ctx context.Context, req TurnRequest, s *turnStream, logger zerolog.Logger) (turn.State, error) {
	p := r.prepare(ctx, req, logger)
	state := p.state

	memory := state.Clone()
	if !s.send(Chunk{Type: ChunkMemory, State: &memory}) {
		return state, errConsumerGone
	}

	modelStream, err := r.provider.Stream(ctx, p.request)
	if err != nil {
		return state, err
	}
	defer modelStream.Close()

	var full strings.Builder
	var usage turn.Record
	for modelStream.Next() {
		fragment := modelStream.Current()
		if fragment.Usage != nil {
			usage = *fragment.Usage
		}
		if fragment.Content == "" {
			continue
		}
		full.WriteString(fragment.Content)
		if !s.send(Chunk{Type: ChunkContent, Content: fragment.Content}) {
			return state, errConsumerGone
		}
	}
	if err := modelStream.Err(); err != nil {
		if ctx.Err() != nil {
			return state, errConsumerGone
		}
		return state, err
	}

	state = turn.Append(state, turn.IntentLMResponse, full.String(),
		turn.WithMetadata(turn.Metadata{turn.MetadataModel: p.model}),
	)
	state.Usage = turn.Merge(usage, p.classification)

	final := state.Clone()
	if !s.send(Chunk{Type: ChunkComplete, State: &final}) {
		return state, errConsumerGone
	}
	return state, nil
}
