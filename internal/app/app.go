// Package app implements the application layer for incr.
package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/incr/internal/build"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/cache"
	"go.trai.ch/incr/internal/engine/invalidation"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	repo         ports.StoreRepository
	walker       ports.Walker
	hasher       ports.Hasher
	prober       ports.FileProber
	remover      ports.Remover
	processor    ports.Processor
	watcher      ports.Watcher
	logger       ports.Logger
	tracer       ports.Tracer
	hooks        ports.Hooks
	policy       *invalidation.Policy

	dir      string
	now      func() time.Time
	debounce time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	repo ports.StoreRepository,
	walker ports.Walker,
	hasher ports.Hasher,
	prober ports.FileProber,
	remover ports.Remover,
	processor ports.Processor,
	watcher ports.Watcher,
	logger ports.Logger,
	tracer ports.Tracer,
	hooks ports.Hooks,
) *App {
	return &App{
		configLoader: loader,
		repo:         repo,
		walker:       walker,
		hasher:       hasher,
		prober:       prober,
		remover:      remover,
		processor:    processor,
		watcher:      watcher,
		logger:       logger,
		tracer:       tracer,
		hooks:        hooks,
		policy:       invalidation.NewPolicy(prober, hasher),
		now:          time.Now,
		debounce:     DefaultDebounceWindow,
	}
}

// WithPolicy replaces the invalidation policy built from the prober and hasher.
func (a *App) WithPolicy(policy *invalidation.Policy) *App {
	a.policy = policy
	return a
}

// WithDir sets the directory the project file is searched from. It defaults to the working
// directory of the process.
func (a *App) WithDir(dir string) *App {
	a.dir = dir
	return a
}

// WithClock replaces the clock that stamps the start of every build.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// WithDebounce sets the quiet window of watch mode.
func (a *App) WithDebounce(window time.Duration) *App {
	a.debounce = window
	return a
}

// workDir returns the directory the project file is searched from.
func (a *App) workDir() (string, error) {
	if a.dir != "" {
		return filepath.Abs(a.dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", zerr.Wrap(err, "failed to get working directory")
	}
	return wd, nil
}

// loadConfig loads the project configuration and fills in the builder hash when the project
// file does not pin one.
func (a *App) loadConfig() (*domain.Config, error) {
	wd, err := a.workDir()
	if err != nil {
		return nil, err
	}
	cfg, err := a.configLoader.Load(wd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if err := cfg.ValidateBuildDirs(); err != nil {
		return nil, err
	}
	if cfg.BuilderHash == "" {
		cfg.BuilderHash = a.builderHash()
	}
	return cfg, nil
}

// builderHash digests the running executable. Without one the release version stands in.
func (a *App) builderHash() string {
	exe, err := os.Executable()
	if err == nil {
		if sum, err := a.hasher.HashFile(exe); err == nil {
			return sum
		}
	}
	return "version:" + build.Version
}

// openCache loads the previous generation and opens the cache of one build over it.
func (a *App) openCache(ctx context.Context, cfg *domain.Config, remover ports.Remover) (*cache.Cache, error) {
	last := a.repo.Load(ctx, cfg.CacheDir, cfg.ModuleNames())
	return cache.Open(ctx, cfg, last, cache.Collaborators{
		Policy:  a.policy,
		Hasher:  a.hasher,
		Prober:  a.prober,
		Remover: remover,
		Logger:  a.logger,
		Hooks:   a.hooks,
		Now:     a.now,
	})
}

// projectKey converts a path given on the command line, relative to wd, to its dependency
// graph key.
func projectKey(cfg *domain.Config, wd, target string) string {
	abs := target
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(wd, target)
	}
	return cfg.PathKey(abs)
}

// isBuildArtifact reports whether p lives in a directory the build writes to.
func isBuildArtifact(cfg *domain.Config, p string) bool {
	return domain.IsWithin(cfg.CacheDir, p) || domain.IsWithin(cfg.OutputDir, p) || domain.IsWithin(cfg.LogDir, p)
}
