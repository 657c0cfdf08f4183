package provider

import (
	"context"

	"github.com/harun/agentcore/pkg/turn"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider for OpenAI
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. baseURL may be empty.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
	}
}

// Provider returns the provider name
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

func (p *OpenAIProvider) params(request Request) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.Context))

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(request.Model),
		Messages:  messages,
		MaxTokens: openai.Int(int64(request.maxTokens())),
	}

	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	return params
}

// Call makes an API call to OpenAI
func (p *OpenAIProvider) Call(ctx context.Context, request Request) (*Response, error) {
	response, err := p.client.Chat.Completions.New(ctx, p.params(request))
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	message := response.Choices[0].Message
	var content any = message.Content
	if message.Content == "" && len(message.ToolCalls) > 0 {
		content = message.ToolCalls
	}

	return &Response{
		Content: content,
		Usage:   openAIUsage(response.Usage),
	}, nil
}

// Stream opens a streaming call to OpenAI with usage reporting enabled
func (p *OpenAIProvider) Stream(ctx context.Context, request Request) (Stream, error) {
	params := p.params(request)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	chunks := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := chunks.Err(); err != nil {
		_ = chunks.Close()
		return nil, err
	}
	return &openAIStream{chunks: chunks}, nil
}

func openAIUsage(u openai.CompletionUsage) turn.Record {
	return turn.Record{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}

type openAIStream struct {
	chunks  eventStream[openai.ChatCompletionChunk]
	usage   *turn.Record
	current Fragment
}

func (s *openAIStream) Next() bool {
	for s.chunks.Next() {
		chunk := s.chunks.Current()

		usageSeen := false
		if u := openAIUsage(chunk.Usage); !u.IsZero() {
			s.usage = &u
			usageSeen = true
		}

		content := ""
		if len(chunk.Choices) > 0 {
			content = chunk.Choices[0].Delta.Content
		}

		if content != "" || usageSeen {
			s.current = Fragment{Content: content, Usage: s.usage}
			return true
		}
	}
	return false
}

func (s *openAIStream) Current() Fragment {
	return s.current
}

func (s *openAIStream) Err() error {
	return s.chunks.Err()
}

func (s *openAIStream) Close() error {
	return s.chunks.Close()
}
