package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/agentcore/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureAudit(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetAuditLogger(NewAuditLogger(&buf))
	t.Cleanup(func() { SetAuditLogger(nil) })
	return &buf
}

func decodeAudit(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestAuditLogger(t *testing.T) {
	t.Run("should use the turn id as actor for turn events", func(t *testing.T) {
		buf := captureAudit(t)
		ctx := tracing.WithTraceID(tracing.WithTurnID(context.Background(), "turn-1"), "trace-1")

		RecordTurnAudit(ctx, "stream", "success", map[string]interface{}{"events": 4})

		lines := decodeAudit(t, buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "turn", lines[0]["event_type"])
		assert.Equal(t, "turn:stream", lines[0]["action"])
		assert.Equal(t, "turn-1", lines[0]["actor"])
		assert.Equal(t, "turn-1", lines[0]["turn_id"])
		assert.Equal(t, "trace-1", lines[0]["trace_id"])
		assert.Equal(t, float64(4), lines[0]["metadata"].(map[string]interface{})["events"])
	})

	t.Run("should keep an explicit actor", func(t *testing.T) {
		buf := captureAudit(t)

		RecordSecurityAudit(context.Background(), "gateway.auth", "10.0.0.1", "denied", nil)

		lines := decodeAudit(t, buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "10.0.0.1", lines[0]["actor"])
		assert.Equal(t, "denied", lines[0]["status"])
		assert.NotContains(t, lines[0], "metadata")
		assert.NotContains(t, lines[0], "turn_id")
	})

	t.Run("should record tool events", func(t *testing.T) {
		buf := captureAudit(t)
		ctx := tracing.WithTurnID(context.Background(), "turn-2")

		RecordToolAudit(ctx, "read_file", "error", map[string]interface{}{"reason": "failed"})

		lines := decodeAudit(t, buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "tool:read_file", lines[0]["action"])
		assert.Equal(t, "turn-2", lines[0]["actor"])
	})

	t.Run("should discard events by default", func(t *testing.T) {
		SetAuditLogger(nil)

		assert.NotPanics(t, func() {
			RecordConfigAudit(context.Background(), "config.init", "cli", nil)
		})
	})
}

func TestInitAuditLogger(t *testing.T) {
	t.Run("should append to an owner-only file and stop after close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.jsonl")
		require.NoError(t, InitAuditLogger(path))
		t.Cleanup(func() { SetAuditLogger(nil) })

		RecordConfigAudit(context.Background(), "config.init", "cli", map[string]interface{}{"path": "x"})
		require.NoError(t, GetAuditLogger().Close())
		RecordConfigAudit(context.Background(), "config.show", "cli", nil)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "\n"))
		assert.Contains(t, string(data), `"action":"config.init"`)
	})
}
