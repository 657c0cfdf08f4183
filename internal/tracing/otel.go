package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelOptions configures the process tracer provider.
type OTelOptions struct {
	ServiceName    string
	ServiceVersion string
	// SampleRatio is the fraction of root turns sampled. Zero means sample everything.
	SampleRatio float64
}

var (
	providerOnce sync.Once
	providerMu   sync.RWMutex
	provider     *sdktrace.TracerProvider
	providerErr  error
)

// InitOpenTelemetry installs the process-wide tracer provider. Only the first call has an effect.
func InitOpenTelemetry(opts OTelOptions) error {
	providerOnce.Do(func() {
		attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
		if opts.ServiceVersion != "" {
			attrs = append(attrs, semconv.ServiceVersion(opts.ServiceVersion))
		}
		res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
		if err != nil {
			providerErr = err
			return
		}

		ratio := opts.SampleRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 1
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
			sdktrace.WithResource(res),
		)

		providerMu.Lock()
		provider = tp
		providerMu.Unlock()

		otel.SetTracerProvider(tp)
	})

	return providerErr
}

// ShutdownOpenTelemetry flushes and shuts down the tracer provider, if one was installed.
func ShutdownOpenTelemetry(ctx context.Context) error {
	providerMu.RLock()
	tp := provider
	providerMu.RUnlock()
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// StartSpan starts a span and copies its trace ID into the tracing context when none is set yet,
// so log lines and audit events of the same turn share one trace_id.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))

	if GetTraceID(ctx) == "" {
		if sc := span.SpanContext(); sc.IsValid() {
			ctx = WithTraceID(ctx, sc.TraceID().String())
		}
	}
	if turnID := GetTurnID(ctx); turnID != "" {
		span.SetAttributes(attribute.String("turn_id", turnID))
	}

	return ctx, span
}

// FailSpan marks span as failed with err. A nil err only sets the status description.
func FailSpan(span trace.Span, err error, description string) {
	if err != nil {
		span.RecordError(err)
		if description == "" {
			description = err.Error()
		}
	}
	span.SetStatus(codes.Error, description)
}
