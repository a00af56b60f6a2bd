package ports

import "context"

// Tracer starts spans around the phases of a build.
type Tracer interface {
	// Start creates a span named name as a child of any span in ctx.
	Start(ctx context.Context, name string) (context.Context, Span)
}

// Span is one timed phase of a build.
type Span interface {
	// End completes the span.
	End()
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
	// RecordError marks the span as failed.
	RecordError(err error)
}
