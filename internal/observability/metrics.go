package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	turnTotal    *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	turnEvents   prometheus.Histogram

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	tokensTotal       *prometheus.CounterVec

	classificationTotal *prometheus.CounterVec
	streamChunksTotal   *prometheus.CounterVec
	activeStreams       prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_turn_total",
					Help: "Total turns by mode and status.",
				},
				[]string{"mode", "status"},
			),
			turnDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentcore_turn_duration_seconds",
					Help:    "Turn duration in seconds by mode.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"mode"},
			),
			turnEvents: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "agentcore_turn_events",
					Help:    "Number of events in the final state of a turn.",
					Buckets: prometheus.LinearBuckets(1, 2, 10),
				},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentcore_tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_tool_errors_total",
					Help: "Total tool execution failures by tool and reason.",
				},
				[]string{"tool", "reason"},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_model_call_total",
					Help: "Total model calls by provider, mode and status.",
				},
				[]string{"provider", "mode", "status"},
			),
			modelCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agentcore_model_call_duration_seconds",
					Help:    "Model call duration in seconds by provider and mode.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider", "mode"},
			),
			tokensTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_tokens_total",
					Help: "Total tokens accounted to turns by kind.",
				},
				[]string{"kind"},
			),
			classificationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_classification_total",
					Help: "Total intent classifications by status.",
				},
				[]string{"status"},
			),
			streamChunksTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agentcore_stream_chunks_total",
					Help: "Total stream chunks emitted by type.",
				},
				[]string{"type"},
			),
			activeStreams: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "agentcore_active_streams",
					Help: "Current number of open streaming turns.",
				},
			),
		}

		prometheus.MustRegister(
			m.turnTotal,
			m.turnDuration,
			m.turnEvents,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.modelCallTotal,
			m.modelCallDuration,
			m.tokensTotal,
			m.classificationTotal,
			m.streamChunksTotal,
			m.activeStreams,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordTurn records a finished turn. mode is "buffered" or "stream".
func RecordTurn(mode string, duration time.Duration, success bool, events int) {
	m := getMetrics()
	m.turnTotal.WithLabelValues(mode, statusLabel(success)).Inc()
	m.turnDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.turnEvents.Observe(float64(events))
}

// RecordToolExecution records one tool invocation. reason is empty on success.
func RecordToolExecution(tool string, duration time.Duration, reason string) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, statusLabel(reason == "")).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if reason != "" {
		m.toolErrorsTotal.WithLabelValues(tool, reason).Inc()
	}
}

func RecordModelCall(provider, mode string, duration time.Duration, success bool) {
	m := getMetrics()
	m.modelCallTotal.WithLabelValues(provider, mode, statusLabel(success)).Inc()
	m.modelCallDuration.WithLabelValues(provider, mode).Observe(duration.Seconds())
}

// RecordTokens adds prompt and completion token counts.
func RecordTokens(prompt, completion int) {
	m := getMetrics()
	if prompt > 0 {
		m.tokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokensTotal.WithLabelValues("completion").Add(float64(completion))
	}
}

func RecordClassification(success bool) {
	getMetrics().classificationTotal.WithLabelValues(statusLabel(success)).Inc()
}

func RecordStreamChunk(chunkType string) {
	getMetrics().streamChunksTotal.WithLabelValues(chunkType).Inc()
}

func StreamOpened() {
	getMetrics().activeStreams.Inc()
}

func StreamClosed() {
	getMetrics().activeStreams.Dec()
}
