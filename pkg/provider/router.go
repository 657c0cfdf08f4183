package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harun/agentcore/internal/observability"
	"github.com/harun/agentcore/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "agentcore/provider"

// knownProviders are the names Factory can build.
var knownProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
}

// Router dispatches "<provider>:<model>" identifiers to registered providers.
// Identifiers without a known provider prefix go to the default provider unchanged.
type Router struct {
	providers       map[string]Provider
	aliases         map[string]string
	defaultProvider string
	mu              sync.RWMutex
}

// NewRouter creates a router that falls back to defaultProvider.
func NewRouter(defaultProvider string) *Router {
	return &Router{
		providers:       make(map[string]Provider),
		aliases:         make(map[string]string),
		defaultProvider: defaultProvider,
	}
}

// Register adds p under its provider name, replacing any previous registration.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Provider()] = p
}

// Alias maps a short model name to a full identifier, e.g. "fast" -> "openai:gpt-4.1-nano".
func (r *Router) Alias(alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = target
}

// Providers returns the registered provider names in sorted order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitModel splits "<provider>:<model>" at the first colon. Without a colon the
// provider is empty.
func SplitModel(id string) (providerName, model string) {
	if i := strings.Index(id, ":"); i > 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

// Resolve returns the provider serving id and the model name to send to it.
func (r *Router) Resolve(id string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[id]; ok {
		id = target
	}

	name, model := SplitModel(id)
	if p, ok := r.providers[name]; ok && name != "" {
		return p, model, nil
	}

	if knownProviders[name] {
		return nil, "", fmt.Errorf("%w: %q is not configured", ErrUnknownProvider, name)
	}

	if p, ok := r.providers[r.defaultProvider]; ok {
		return p, id, nil
	}

	if name == "" {
		name = r.defaultProvider
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Provider returns the provider name
func (r *Router) Provider() string {
	return "router"
}

// Call resolves request.Model and forwards the call.
func (r *Router) Call(ctx context.Context, request Request) (*Response, error) {
	p, model, err := r.Resolve(request.Model)
	if err != nil {
		return nil, err
	}
	request.Model = model

	ctx, span := tracing.StartSpan(ctx, tracerName, "model.call",
		attribute.String("model.provider", p.Provider()),
		attribute.String("model.name", model),
	)
	defer span.End()

	start := time.Now()
	response, err := p.Call(ctx, request)
	observability.RecordModelCall(p.Provider(), "buffered", time.Since(start), err == nil)
	if err != nil {
		tracing.FailSpan(span, err, "")
		return nil, err
	}
	return response, nil
}

// Stream resolves request.Model and opens a stream on the resolved provider.
func (r *Router) Stream(ctx context.Context, request Request) (Stream, error) {
	p, model, err := r.Resolve(request.Model)
	if err != nil {
		return nil, err
	}
	request.Model = model

	start := time.Now()
	stream, err := p.Stream(ctx, request)
	if err != nil {
		observability.RecordModelCall(p.Provider(), "stream", time.Since(start), false)
		return nil, err
	}
	return &meteredStream{Stream: stream, provider: p.Provider(), start: start}, nil
}

// meteredStream records the model call once the stream is closed.
type meteredStream struct {
	Stream
	provider string
	start    time.Time
	once     sync.Once
}

func (s *meteredStream) Close() error {
	err := s.Stream.Close()
	s.once.Do(func() {
		observability.RecordModelCall(s.provider, "stream", time.Since(s.start), s.Stream.Err() == nil)
	})
	return err
}
