package app

import (
	"context"

	"go.trai.ch/incr/internal/engine/depgraph"
)

// DepsReport lists the transitive neighbours of one file in the graph recorded by the last build.
type DepsReport struct {
	Path         string
	Dependencies []string
	Dependents   []string
}

// Deps returns every file the target depended on in the last build, and every file that depended
// on it. The target may be a path on disk or a project-relative key.
func (a *App) Deps(ctx context.Context, target string) (*DepsReport, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	wd, err := a.workDir()
	if err != nil {
		return nil, err
	}

	last := a.repo.Load(ctx, cfg.CacheDir, cfg.ModuleNames())
	idx := depgraph.New(last.DependencyGraph())
	key := projectKey(cfg, wd, target)

	return &DepsReport{
		Path:         key,
		Dependencies: idx.AllDependencies(key),
		Dependents:   idx.AllDependents(key),
	}, nil
}
