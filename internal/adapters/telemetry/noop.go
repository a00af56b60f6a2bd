package telemetry

import (
	"context"

	"go.trai.ch/incr/internal/core/ports"
)

var (
	_ ports.Tracer = NoOpTracer{}
	_ ports.Hooks  = NoOpHooks{}
)

// NoOpTracer is a no-op implementation of ports.Tracer.
type NoOpTracer struct{}

// Start returns ctx unchanged and a span that does nothing.
func (NoOpTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, NoOpSpan{}
}

// NoOpSpan is a no-op implementation of ports.Span.
type NoOpSpan struct{}

// End does nothing.
func (NoOpSpan) End() {}

// SetAttribute does nothing.
func (NoOpSpan) SetAttribute(string, any) {}

// RecordError does nothing.
func (NoOpSpan) RecordError(error) {}

// NoOpHooks ignores every notification.
type NoOpHooks struct{}

// OnCacheDrop does nothing.
func (NoOpHooks) OnCacheDrop(context.Context, string, string) {}

// MarkFailedModule does nothing.
func (NoOpHooks) MarkFailedModule(context.Context, string, string) {}
