package app

import (
	"context"
	"fmt"
	"slices"

	"go.trai.ch/incr/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/depgraph"
	"go.trai.ch/zerr"
)

// DefaultDebounceWindow is the quiet window watch mode waits for before it reacts to a batch.
const DefaultDebounceWindow = watcher.DefaultDebounceWindow

// WatchOptions controls watch mode.
type WatchOptions struct {
	// Rebuild runs a build after every batch of changes.
	Rebuild bool
}

// WatchBatch describes one debounced batch of source changes.
type WatchBatch struct {
	// Changed holds the project keys of the files that changed.
	Changed []string
	// Impacted holds every file whose cached result depends on a changed file.
	Impacted []string
	// Build is the report of the rebuild, when one ran.
	Build *Report
	// Err is the error of the rebuild, when one ran and failed.
	Err error
}

// forgetter is implemented by hashers that memoize digests.
type forgetter interface {
	Forget(path string)
}

// Watch watches every module root and calls onBatch for each debounced batch of changes until
// ctx is canceled.
func (a *App) Watch(ctx context.Context, opts WatchOptions, onBatch func(WatchBatch)) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	wd, err := a.workDir()
	if err != nil {
		return err
	}

	roots := make([]string, 0, len(cfg.Modules))
	for _, m := range cfg.Modules {
		roots = append(roots, cfg.ModuleRoot(m))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.watcher.Start(ctx, roots...); err != nil {
		return zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}
	defer func() {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn(fmt.Sprintf("failed to stop watcher: %v", err))
		}
	}()

	batches := make(chan []string)
	debouncer := watcher.NewDebouncer(a.debounce, func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})

	go func() {
		forget, _ := a.hasher.(forgetter)
		for ev := range a.watcher.Events() {
			if isBuildArtifact(cfg, ev.Path) {
				continue
			}
			if forget != nil {
				forget.Forget(ev.Path)
			}
			debouncer.Add(ev.Path)
		}
	}()

	a.logger.Info(fmt.Sprintf("watching %d modules for changes...", len(roots)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-batches:
			onBatch(a.impact(ctx, cfg, wd, paths, opts))
		}
	}
}

// impact maps a batch of changed paths to the files the last build derived from them.
func (a *App) impact(ctx context.Context, cfg *domain.Config, wd string, paths []string, opts WatchOptions) WatchBatch {
	last := a.repo.Load(ctx, cfg.CacheDir, cfg.ModuleNames())
	idx := depgraph.New(last.DependencyGraph())

	batch := WatchBatch{Changed: make([]string, 0, len(paths))}
	seen := make(map[string]struct{})
	for _, p := range paths {
		key := projectKey(cfg, wd, p)
		batch.Changed = append(batch.Changed, key)
		seen[key] = struct{}{}
	}
	for _, key := range batch.Changed {
		for _, dep := range idx.AllDependents(key) {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			batch.Impacted = append(batch.Impacted, dep)
		}
	}
	slices.Sort(batch.Impacted)

	if opts.Rebuild {
		batch.Build, batch.Err = a.Build(ctx, BuildOptions{})
	}
	return batch
}
