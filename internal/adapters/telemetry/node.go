package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.opentelemetry.io/otel"
	"go.trai.ch/incr/internal/adapters/logger"
	"go.trai.ch/incr/internal/core/ports"
)

const (
	// TracerNodeID is the unique identifier for the tracer Graft node.
	TracerNodeID graft.ID = "adapter.telemetry.tracer"
	// HooksNodeID is the unique identifier for the hooks Graft node.
	HooksNodeID graft.ID = "adapter.telemetry.hooks"
)

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Tracer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			otel.SetTracerProvider(NewProvider(NewBridge(log)))
			return NewOTelTracer("incr"), nil
		},
	})

	graft.Register(graft.Node[ports.Hooks]{
		ID:        HooksNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Hooks, error) {
			return NewHooks(), nil
		},
	})
}
