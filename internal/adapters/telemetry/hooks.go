package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/incr/internal/core/ports"
)

// Event names added to the active span.
const (
	EventCacheDrop    = "cache_drop"
	EventModuleFailed = "module_failed"
)

var _ ports.Hooks = (*Hooks)(nil)

// Hooks records invalidation decisions as events on the span found in the context and counts
// them per kind.
type Hooks struct {
	mu     sync.Mutex
	drops  map[string]int
	failed []string
}

// NewHooks creates Hooks with empty counters.
func NewHooks() *Hooks {
	return &Hooks{drops: make(map[string]int)}
}

// OnCacheDrop adds a cache_drop event to the active span.
func (h *Hooks) OnCacheDrop(ctx context.Context, kind, reason string) {
	h.mu.Lock()
	h.drops[kind]++
	h.mu.Unlock()

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(EventCacheDrop, trace.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("reason", reason),
		))
	}
}

// MarkFailedModule adds a module_failed event to the active span.
func (h *Hooks) MarkFailedModule(ctx context.Context, module, reason string) {
	h.mu.Lock()
	h.failed = append(h.failed, module)
	h.mu.Unlock()

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(EventModuleFailed, trace.WithAttributes(
			attribute.String("module", module),
			attribute.String("reason", reason),
		))
	}
}

// Drops returns the number of drops reported per kind.
func (h *Hooks) Drops() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.drops))
	for k, v := range h.drops {
		out[k] = v
	}
	return out
}

// FailedModules returns the modules reported as failed, in report order.
func (h *Hooks) FailedModules() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.failed...)
}
