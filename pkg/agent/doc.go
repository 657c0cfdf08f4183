// Package agent runs single conversational turns over an append-only event log.
//
// A turn appends the user input, asks the classifier which tools to call, runs them
// in order, renders the log and asks the model for a reply. RunTurn returns the reply
// in one value; StreamTurn delivers it as memory, content and complete chunks.
//
// Invariants:
//   - Every failure path yields a well-formed state; model errors become llm_error events.
//   - The turn's usage is the sum of the classification and model calls.
//   - Turns share no mutable state, so a Runner serves concurrent turns.
//
// Usage:
//
//	runner, _ := agent.NewRunner(agent.Config{
//		Provider:     router,
//		Classifier:   classifier.NewLLMClassifier(router, "", logger),
//		ToolExecutor: tools,
//		Logger:       logger,
//	})
//	result := runner.RunTurn(ctx, agent.TurnRequest{Prompt: "What is the weather in Tokyo?"})
//	for chunk := range runner.StreamTurn(ctx, agent.TurnRequest{Prompt: "hello"}) {
//		_ = chunk
//	}
package agent
