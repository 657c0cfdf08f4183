package observability

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/harun/agentcore/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Audit event types.
const (
	AuditTypeTurn     = "turn"
	AuditTypeTool     = "tool"
	AuditTypeSecurity = "security"
	AuditTypeConfig   = "config"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Type      string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor,omitempty"` // turn ID, remote host or "cli"
	Action    string                 `json:"action"`          // "tool:read_file", "turn:stream", "gateway.auth"
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	TurnID    string                 `json:"turn_id,omitempty"`
}

// AuditLogger writes audit events as JSON lines.
type AuditLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	closer io.Closer
}

var (
	auditMu   sync.RWMutex
	auditInst = &AuditLogger{logger: zerolog.Nop()}
)

// NewAuditLogger returns an audit logger writing to w.
func NewAuditLogger(w io.Writer) *AuditLogger {
	a := &AuditLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
	if c, ok := w.(io.Closer); ok {
		a.closer = c
	}
	return a
}

// GetAuditLogger returns the process audit logger. Events are discarded until
// InitAuditLogger or SetAuditLogger installs a real one.
func GetAuditLogger() *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return auditInst
}

// SetAuditLogger replaces the process audit logger. A nil logger discards events.
func SetAuditLogger(a *AuditLogger) {
	if a == nil {
		a = &AuditLogger{logger: zerolog.Nop()}
	}
	auditMu.Lock()
	auditInst = a
	auditMu.Unlock()
}

// InitAuditLogger routes audit events to an append-only file readable only by the owner.
func InitAuditLogger(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	SetAuditLogger(NewAuditLogger(file))
	return nil
}

// Record writes event, filling in the timestamp and the trace and turn IDs from ctx.
// When a span is recording, the event is also attached to it.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.TurnID == "" {
		event.TurnID = tracing.GetTurnID(ctx)
	}
	if event.Actor == "" {
		event.Actor = event.TurnID
	}

	span := trace.SpanFromContext(ctx)
	if sc := span.SpanContext(); sc.IsValid() {
		event.TraceID = sc.TraceID().String()
		span.AddEvent("audit."+event.Type, trace.WithAttributes(
			attribute.String("audit.action", event.Action),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.actor", event.Actor),
		))
	} else {
		event.TraceID = tracing.GetTraceID(ctx)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("event_type", event.Type).
		Str("action", event.Action).
		Str("status", event.Status)
	if event.Actor != "" {
		entry = entry.Str("actor", event.Actor)
	}
	if event.TraceID != "" {
		entry = entry.Str("trace_id", event.TraceID)
	}
	if event.TurnID != "" {
		entry = entry.Str("turn_id", event.TurnID)
	}
	if len(event.Metadata) > 0 {
		entry = entry.Interface("metadata", event.Metadata)
	}
	entry.Msg("")
}

// Close closes the underlying writer when it is closable. Later events are discarded.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = zerolog.Nop()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// RecordToolAudit records one tool invocation of the current turn.
func RecordToolAudit(ctx context.Context, toolName, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditTypeTool,
		Action:   "tool:" + toolName,
		Status:   status,
		Metadata: metadata,
	})
}

// RecordTurnAudit records a completed turn. mode is "buffered" or "stream".
func RecordTurnAudit(ctx context.Context, mode, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditTypeTurn,
		Action:   "turn:" + mode,
		Status:   status,
		Metadata: metadata,
	})
}

func RecordSecurityAudit(ctx context.Context, action, actor, status string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditTypeSecurity,
		Actor:    actor,
		Action:   action,
		Status:   status,
		Metadata: metadata,
	})
}

func RecordConfigAudit(ctx context.Context, action, actor string, metadata map[string]interface{}) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     AuditTypeConfig,
		Actor:    actor,
		Action:   action,
		Status:   "success",
		Metadata: metadata,
	})
}
