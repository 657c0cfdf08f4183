// Package toolexecutor holds the tool registry and the coordinator that runs classified
// tool intents against it.
//
// Invariants:
//   - Tool names are unique within a registry.
//   - Intents execute sequentially in classification order, each appending to the state
//     produced by the previous one.
//   - A failing tool is recorded as an event and never aborts the remaining intents.
//
// Usage:
//
//	exec := toolexecutor.New()
//	_ = exec.RegisterTool(toolexecutor.ToolDefinition{
//		Name:        "echo",
//		Description: "Echo input",
//		Parameters:  []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
//			return fmt.Sprint(args["text"]), nil
//		},
//	})
//	state = toolexecutor.ExecuteTools(ctx, intents, state, exec.Definitions())
package toolexecutor
