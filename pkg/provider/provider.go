package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harun/agentcore/pkg/turn"
)

var (
	// ErrUnknownProvider is returned when a model identifier names no registered provider.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrEmptyResponse is returned when a model answers without any choice.
	ErrEmptyResponse = errors.New("empty response from model")
)

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// Provider is an interface for LLM API providers
type Provider interface {
	// Call makes a single LLM API call
	Call(ctx context.Context, request Request) (*Response, error)

	// Stream opens an incremental LLM API call. The caller must Close the stream.
	Stream(ctx context.Context, request Request) (Stream, error)

	// Provider returns the provider name
	Provider() string
}

// Request contains the request parameters for an LLM call. The system prompt and the
// rendered context are sent as a system message and a single user message.
type Request struct {
	Model        string
	SystemPrompt string
	Context      string
	MaxTokens    int
	Temperature  float64
}

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// Response contains the response from an LLM. Content is a string for text replies
// and the provider's structured content otherwise.
type Response struct {
	Content any
	Usage   turn.Record
}

// Text returns the response content as a string, serialising structured content as JSON.
func (r *Response) Text() (string, error) {
	return ContentText(r.Content)
}

// ContentText passes strings through and serialises anything else as JSON.
func ContentText(content any) (string, error) {
	switch c := content.(type) {
	case string:
		return c, nil
	case nil:
		return "", nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to serialize response content: %w", err)
	}
	return string(data), nil
}

// Fragment is one step of a model stream. Content may be empty when the step only
// carries usage. Usage is cumulative and nil until the provider has reported any.
type Fragment struct {
	Content string
	Usage   *turn.Record
}

// Stream iterates over fragments of a streaming model call.
type Stream interface {
	Next() bool
	Current() Fragment
	Err() error
	Close() error
}

// eventStream is the iterator shape of the SDK server-sent event streams.
type eventStream[T any] interface {
	Next() bool
	Current() T
	Err() error
	Close() error
}
