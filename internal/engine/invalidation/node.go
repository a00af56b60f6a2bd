package invalidation

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/incr/internal/adapters/fs" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/incr/internal/core/ports"
)

// NodeID is the unique identifier for the invalidation policy Graft node.
const NodeID graft.ID = "engine.invalidation"

func init() {
	graft.Register(graft.Node[*Policy]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.VerifierNodeID, fs.HasherNodeID},
		Run: func(ctx context.Context) (*Policy, error) {
			prober, err := graft.Dep[ports.FileProber](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewPolicy(prober, hasher), nil
		},
	})
}
