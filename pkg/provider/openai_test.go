package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harun/agentcore/pkg/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Call(t *testing.T) {
	t.Run("should send system and user messages and return text", func(t *testing.T) {
		var got map[string]any
		srv := openAIServer(t, func(w http.ResponseWriter, body map[string]any) {
			got = body
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4.1-nano",
				"choices":[{"index":0,"message":{"role":"assistant","content":"It is sunny in Tokyo."},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":100,"completion_tokens":20,"total_tokens":120}}`)
		})

		p := NewOpenAIProvider("test-key", srv.URL)
		resp, err := p.Call(context.Background(), Request{
			Model:        "gpt-4.1-nano",
			SystemPrompt: "You are a helpful AI assistant.",
			Context:      "<thread>\n</thread>",
			Temperature:  0.2,
		})

		require.NoError(t, err)
		assert.Equal(t, "It is sunny in Tokyo.", resp.Content)
		assert.Equal(t, turn.Record{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}, resp.Usage)

		assert.Equal(t, "gpt-4.1-nano", got["model"])
		assert.InDelta(t, 0.2, got["temperature"], 0.0001)
		messages := got["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "user", messages[1].(map[string]any)["role"])
		assert.Equal(t, "<thread>\n</thread>", messages[1].(map[string]any)["content"])
	})

	t.Run("should report empty choices", func(t *testing.T) {
		srv := openAIServer(t, func(w http.ResponseWriter, body map[string]any) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
		})

		p := NewOpenAIProvider("test-key", srv.URL)
		_, err := p.Call(context.Background(), Request{Model: "m", Context: "x"})

		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("should return an error on API failure", func(t *testing.T) {
		srv := openAIServer(t, func(w http.ResponseWriter, body map[string]any) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
		})

		p := NewOpenAIProvider("bad-key", srv.URL)
		_, err := p.Call(context.Background(), Request{Model: "m", Context: "x"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Incorrect API key provided")
	})
}

func TestOpenAIProvider_Stream(t *testing.T) {
	srv := openAIServer(t, func(w http.ResponseWriter, body map[string]any) {
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, map[string]any{"include_usage": true}, body["stream_options"])
		writeSSE(w,
			"data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"\"},\"finish_reason\":null}]}\n\n",
			"data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Sunny \"},\"finish_reason\":null}]}\n\n",
			"data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"today\"},\"finish_reason\":\"stop\"}]}\n\n",
			"data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":2,\"total_tokens\":11}}\n\n",
			"data: [DONE]\n\n",
		)
	})

	p := NewOpenAIProvider("test-key", srv.URL)
	stream, err := p.Stream(context.Background(), Request{Model: "m", Context: "x"})
	require.NoError(t, err)
	defer stream.Close()

	var fragments []string
	var last *turn.Record
	for stream.Next() {
		fragment := stream.Current()
		if fragment.Content != "" {
			fragments = append(fragments, fragment.Content)
		}
		if fragment.Usage != nil {
			last = fragment.Usage
		}
	}

	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"Sunny ", "today"}, fragments)
	require.NotNil(t, last)
	assert.Equal(t, turn.Record{PromptTokens: 9, CompletionTokens: 2, TotalTokens: 11}, *last)
}
