package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/incr/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/processor" //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/storage"   //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/invalidation"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			storage.NodeID,
			fs.WalkerNodeID,
			fs.HasherNodeID,
			fs.VerifierNodeID,
			fs.RemoverNodeID,
			processor.NodeID,
			watcher.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
			telemetry.HooksNodeID,
			invalidation.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	repo, err := graft.Dep[ports.StoreRepository](ctx)
	if err != nil {
		return nil, err
	}
	walker, err := graft.Dep[ports.Walker](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}
	prober, err := graft.Dep[ports.FileProber](ctx)
	if err != nil {
		return nil, err
	}
	remover, err := graft.Dep[ports.Remover](ctx)
	if err != nil {
		return nil, err
	}
	proc, err := graft.Dep[ports.Processor](ctx)
	if err != nil {
		return nil, err
	}
	watch, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}
	hooks, err := graft.Dep[ports.Hooks](ctx)
	if err != nil {
		return nil, err
	}

	policy, err := graft.Dep[*invalidation.Policy](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, repo, walker, hasher, prober, remover, proc, watch, log, tracer, hooks).WithPolicy(policy), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:    app,
		Logger: log,
	}, nil
}
