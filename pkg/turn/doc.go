// Package turn holds the append-only record of one conversation turn.
//
// Invariants:
//   - Events are appended, never removed or reordered.
//   - Every function returns a new State; inputs are never modified.
//   - Usage is recomputed wholesale by the turn driver, not accumulated here.
//
// Usage:
//
//	state := turn.Append(turn.State{}, turn.IntentUserInput, "hello")
//	state = turn.Append(state, turn.Intent("get_weather"), "sunny",
//		turn.WithArgs(map[string]any{"location": "Tokyo"}),
//		turn.WithMetadata(turn.Metadata{turn.MetadataStatus: string(turn.StatusSuccess)}),
//	)
//	history := turn.Render(state)
//	_ = history
package turn
