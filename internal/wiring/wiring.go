// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/incr/internal/adapters/config"
	_ "go.trai.ch/incr/internal/adapters/fs"
	_ "go.trai.ch/incr/internal/adapters/logger"
	_ "go.trai.ch/incr/internal/adapters/processor"
	_ "go.trai.ch/incr/internal/adapters/storage"
	_ "go.trai.ch/incr/internal/adapters/telemetry"
	_ "go.trai.ch/incr/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/incr/internal/app"
	_ "go.trai.ch/incr/internal/engine/invalidation"
)
