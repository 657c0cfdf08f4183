// Package provider adapts hosted language models to the turn driver.
//
// A Provider answers a rendered conversation either in one call or as a stream of
// text fragments. Router dispatches "<provider>:<model>" identifiers such as
// "openai:gpt-4.1-nano" to registered providers.
//
// Usage:
//
//	router := provider.NewRouter("openai")
//	router.Register(provider.NewOpenAIProvider(apiKey, ""))
//	resp, err := router.Call(ctx, provider.Request{
//		Model:        "openai:gpt-4.1-nano",
//		SystemPrompt: "You are a helpful AI assistant.",
//		Context:      turn.Render(state),
//	})
package provider
