package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewTurnID(t *testing.T) {
	id1 := NewTurnID()
	id2 := NewTurnID()

	if id1 == "" {
		t.Error("NewTurnID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTurnID returned duplicate IDs")
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "test-trace-id")

	if retrieved := GetTraceID(ctx); retrieved != "test-trace-id" {
		t.Errorf("Expected trace ID %s, got %s", "test-trace-id", retrieved)
	}
}

func TestWithTurnID(t *testing.T) {
	ctx := WithTurnID(context.Background(), "test-turn-id")

	if retrieved := GetTurnID(ctx); retrieved != "test-turn-id" {
		t.Errorf("Expected turn ID %s, got %s", "test-turn-id", retrieved)
	}
}

func TestWithClientID(t *testing.T) {
	ctx := WithClientID(context.Background(), "ws-1")

	if retrieved := GetClientID(ctx); retrieved != "ws-1" {
		t.Errorf("Expected client ID %s, got %s", "ws-1", retrieved)
	}
}

func TestGetIDsEmpty(t *testing.T) {
	ctx := context.Background()

	if GetTraceID(ctx) != "" {
		t.Error("Expected empty trace ID")
	}
	if GetTurnID(ctx) != "" {
		t.Error("Expected empty turn ID")
	}
	if GetClientID(ctx) != "" {
		t.Error("Expected empty client ID")
	}
	if GetRequestID(ctx) != "" {
		t.Error("Expected empty request ID")
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithTurnID(ctx, "turn-1")
	ctx = WithClientID(ctx, "client-1")
	ctx = WithRequestID(ctx, "req-1")

	tc := FromContext(ctx)

	if tc.TraceID != "trace-1" || tc.TurnID != "turn-1" || tc.ClientID != "client-1" || tc.RequestID != "req-1" {
		t.Errorf("Unexpected trace context: %+v", tc)
	}
}

func TestNewContextPartial(t *testing.T) {
	ctx := NewContext(context.Background(), &TraceContext{TurnID: "turn-2"})

	if GetTurnID(ctx) != "turn-2" {
		t.Error("Turn ID not set")
	}
	if GetTraceID(ctx) != "" {
		t.Error("Trace ID should be empty")
	}
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())

	if GetTraceID(ctx) == "" {
		t.Error("NewRequestContext did not set trace ID")
	}
}

func TestNewTurnContext(t *testing.T) {
	ctx, turnID := NewTurnContext(context.Background())

	if turnID == "" {
		t.Fatal("NewTurnContext returned empty turn ID")
	}
	if GetTurnID(ctx) != turnID {
		t.Error("Turn ID not stored in context")
	}

	again, sameID := NewTurnContext(ctx)
	if sameID != turnID {
		t.Errorf("Expected existing turn ID %s to be kept, got %s", turnID, sameID)
	}
	if GetTurnID(again) != turnID {
		t.Error("Turn ID changed on second call")
	}
}
