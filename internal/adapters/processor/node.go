package processor

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/incr/internal/core/ports"
)

// NodeID is the unique identifier for the processor Graft node.
const NodeID graft.ID = "adapter.processor"

func init() {
	graft.Register(graft.Node[ports.Processor]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Processor, error) {
			return NewPassthrough(), nil
		},
	})
}
