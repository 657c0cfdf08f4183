package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harun/agentcore/pkg/turn"
)

// AnthropicProvider implements Provider for Anthropic Claude
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider. baseURL may be empty.
func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
	}
}

// Provider returns the provider name
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

func (p *AnthropicProvider) params(request Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model: anthropic.Model(request.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Context)),
		},
		MaxTokens: int64(request.maxTokens()),
	}

	if request.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemPrompt},
		}
	}

	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	return params
}

// Call makes an API call to Anthropic Claude
func (p *AnthropicProvider) Call(ctx context.Context, request Request) (*Response, error) {
	response, err := p.client.Messages.New(ctx, p.params(request))
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	textOnly := true
	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		default:
			textOnly = false
		}
	}

	var content any = text.String()
	if !textOnly {
		content = response.Content
	}

	return &Response{
		Content: content,
		Usage:   anthropicUsage(response.Usage),
	}, nil
}

// Stream opens a streaming call to Anthropic Claude
func (p *AnthropicProvider) Stream(ctx context.Context, request Request) (Stream, error) {
	events := p.client.Messages.NewStreaming(ctx, p.params(request))
	if err := events.Err(); err != nil {
		_ = events.Close()
		return nil, err
	}
	return &anthropicStream{events: events}, nil
}

func anthropicUsage(u anthropic.Usage) turn.Record {
	return turn.Record{
		InputTokens:  int(u.InputTokens),
		OutputTokens: int(u.OutputTokens),
	}
}

type anthropicStream struct {
	events  eventStream[anthropic.MessageStreamEventUnion]
	message anthropic.Message
	current Fragment
	err     error
}

func (s *anthropicStream) Next() bool {
	if s.err != nil {
		return false
	}
	for s.events.Next() {
		event := s.events.Current()
		if err := s.message.Accumulate(event); err != nil {
			s.err = fmt.Errorf("failed to accumulate stream event: %w", err)
			return false
		}

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok {
				s.current = Fragment{Content: delta.Text, Usage: s.usage()}
				return true
			}
		case anthropic.MessageStartEvent, anthropic.MessageDeltaEvent:
			s.current = Fragment{Usage: s.usage()}
			return true
		}
	}
	return false
}

func (s *anthropicStream) usage() *turn.Record {
	u := anthropicUsage(s.message.Usage)
	return &u
}

func (s *anthropicStream) Current() Fragment {
	return s.current
}

func (s *anthropicStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.events.Err()
}

func (s *anthropicStream) Close() error {
	return s.events.Close()
}
