package gateway

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/harun/agentcore/pkg/agent"
)

// writeSSE writes chunk as one server-sent event named after its type.
func writeSSE(w io.Writer, chunk agent.Chunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to encode chunk: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", chunk.Type, data)
	return err
}
