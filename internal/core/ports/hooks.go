package ports

import "context"

// Hooks are passive sinks notified about invalidation decisions.
// Implementations must not change cache behavior; a no-op implementation is always valid.
//
//go:generate go run go.uber.org/mock/mockgen -source=hooks.go -destination=mocks/mock_hooks.go -package=mocks
type Hooks interface {
	// OnCacheDrop is called once for every invalidation with its kind and human-readable reason.
	OnCacheDrop(ctx context.Context, kind, reason string)

	// MarkFailedModule is called when a module fails as a whole.
	MarkFailedModule(ctx context.Context, module, reason string)
}
