// Package cache implements the incremental build cache of one build: it holds the previous and
// the current generation, answers whether a source must be reprocessed and collects the garbage
// left behind by the previous build.
package cache

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/invalidation"
	"go.trai.ch/zerr"
)

// Hook kinds reported for invalidations that are not a drop latch.
const (
	KindProject = "project"
	KindModule  = "module"
)

// Collaborators are the ports a Cache works through. Hooks may be nil.
type Collaborators struct {
	Policy  *invalidation.Policy
	Hasher  ports.Hasher
	Prober  ports.FileProber
	Remover ports.Remover
	Logger  ports.Logger
	Hooks   ports.Hooks
	// Now is the clock used for the start time of the generation. Defaults to time.Now.
	Now func() time.Time
}

// Cache is the incremental cache of one build.
type Cache struct {
	cfg     *domain.Config
	last    *domain.Store
	current *domain.Store
	checker *invalidation.Checker
	latches *invalidation.Latches

	hasher  ports.Hasher
	prober  ports.FileProber
	remover ports.Remover
	logger  ports.Logger
	hooks   ports.Hooks

	cacheDropped bool
	forced       []string
	removed      []string

	mu           sync.Mutex
	reasons      []domain.Reason
	failed       map[string]map[string]struct{}
	stats        map[string]*domain.ModuleStats
	counted      map[string]bool
	moduleDeps   map[string][]string
	staleOutputs map[string]struct{}
	garbage      []string
	compiled     *domain.Store
}

// Open starts a build against the previous generation last.
//
// The whole-cache checks run first and may replace last with an empty generation after wiping
// the cache and output directories. Modules whose parameters changed are then purged and wiped
// one by one, and modules no longer configured are purged with their outputs kept for garbage
// collection. Only after these steps are files checked.
func Open(ctx context.Context, cfg *domain.Config, last *domain.Store, deps Collaborators) (*Cache, error) {
	if err := cfg.ValidateBuildDirs(); err != nil {
		return nil, err
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	current := domain.NewStore()
	current.HashOfBuilder = cfg.BuilderHash
	current.StartBuildTime = now().UnixMilli()
	current.TemplatesProcessorHash = cfg.TemplatesProcessorHash
	current.RunningParameters = cfg.RunningParameters()
	current.Extra = domain.ExtraConfig{React: cfg.React, TscReport: cfg.TscReport}
	current.CachePaths = domain.CachePaths{Cache: cfg.CacheDir, Logs: cfg.LogDir}

	c := &Cache{
		cfg:          cfg,
		last:         last,
		current:      current,
		latches:      &invalidation.Latches{},
		hasher:       deps.Hasher,
		prober:       deps.Prober,
		remover:      deps.Remover,
		logger:       deps.Logger,
		hooks:        deps.Hooks,
		failed:       make(map[string]map[string]struct{}),
		stats:        make(map[string]*domain.ModuleStats),
		counted:      make(map[string]bool),
		moduleDeps:   make(map[string][]string),
		staleOutputs: make(map[string]struct{}),
	}

	if reason, fired := deps.Policy.HasIncompatibleChanges(ctx, last, current, cfg); fired {
		c.report(ctx, KindProject, reason)
		if err := c.wipe(ctx); err != nil {
			return nil, err
		}
		c.last = domain.NewStore()
		c.cacheDropped = true
	} else {
		c.latchCompilerChanges(ctx)
		if err := c.purgeForcedModules(ctx); err != nil {
			return nil, err
		}
		if err := c.purgeRemovedModules(ctx); err != nil {
			return nil, err
		}
		c.migrateRegionNodes()
	}

	c.checker = deps.Policy.NewChecker(c.last, cfg, c.latches)
	return c, nil
}

// latchCompilerChanges widens invalidation when the template compiler changed between builds.
func (c *Cache) latchCompilerChanges(ctx context.Context) {
	if c.last.TemplatesProcessorHash != "" && c.last.TemplatesProcessorHash != c.current.TemplatesProcessorHash {
		c.SetDropCache(ctx, domain.DropMarkup, "templates processor changed")
		c.SetDropCache(ctx, domain.DropStaticMarkup, "templates processor changed")
	}
	if c.last.Extra.React != c.current.Extra.React {
		c.SetDropCache(ctx, domain.DropMarkup, "react mode toggled")
	}
}

func (c *Cache) purgeForcedModules(ctx context.Context) error {
	forced := invalidation.ForceModuleRebuild(c.last.RunningParameters, c.current.RunningParameters)
	for _, m := range c.cfg.Modules {
		if m.Rebuild && !slices.Contains(forced, m.Name) {
			forced = append(forced, m.Name)
		}
	}

	for _, name := range forced {
		msg := "module parameters changed"
		if m, _ := c.cfg.Module(name); m.Rebuild {
			msg = "rebuild requested"
		}
		c.report(ctx, KindModule, domain.Reason{Scope: domain.ScopeModule, Module: name, Message: msg})

		dirs := []string{filepath.Join(c.cfg.CacheDir, name), filepath.Join(c.cfg.OutputDir, name)}
		if _, err := c.remover.RemoveAll(ctx, dirs); err != nil {
			return err
		}
		c.last.DeleteModule(name)
	}
	c.forced = forced
	return nil
}

// purgeRemovedModules keeps the outputs of modules that left the project as garbage candidates
// and deletes their store documents.
func (c *Cache) purgeRemovedModules(ctx context.Context) error {
	var docs []string
	for _, name := range c.last.Modules() {
		if _, ok := c.cfg.Module(name); ok {
			continue
		}
		c.report(ctx, KindModule, domain.Reason{Scope: domain.ScopeModule, Module: name, Message: "module removed from the project"})
		for out := range c.last.ModuleOutputFilesSet(name) {
			c.staleOutputs[out] = struct{}{}
		}
		c.last.DeleteModule(name)
		c.removed = append(c.removed, name)
		docs = append(docs, domain.ModuleCacheDir(c.cfg.CacheDir, name))
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := c.remover.RemoveAll(ctx, docs)
	return err
}

func (c *Cache) migrateRegionNodes() {
	prev := c.last.RegionNodes()
	for module, nodes := range prev {
		if _, ok := c.cfg.Module(module); !ok {
			continue
		}
		for node, regions := range nodes {
			for region, values := range regions {
				for k, v := range values {
					c.current.SetRegionNode(module, node, region, k, v)
				}
			}
		}
	}
}

// report records an invalidation, logs it and notifies the hooks.
func (c *Cache) report(ctx context.Context, kind string, r domain.Reason) {
	c.mu.Lock()
	c.reasons = append(c.reasons, r)
	c.mu.Unlock()

	if r.Scope == domain.ScopeFile {
		c.logger.Debug(r.String())
		return
	}
	c.logger.Info(r.String())
	if c.hooks != nil {
		c.hooks.OnCacheDrop(ctx, kind, r.String())
	}
}

// Last returns the previous generation.
func (c *Cache) Last() *domain.Store {
	return c.last
}

// Current returns the generation being built.
func (c *Cache) Current() *domain.Store {
	return c.current
}

// Latches returns the drop latches of this build.
func (c *Cache) Latches() *invalidation.Latches {
	return c.latches
}

// CacheDropped reports whether the previous generation was discarded as a whole.
func (c *Cache) CacheDropped() bool {
	return c.cacheDropped
}

// ForcedModules returns the modules rebuilt from scratch.
func (c *Cache) ForcedModules() []string {
	return slices.Clone(c.forced)
}

// RemovedModules returns the modules that left the project since the previous build.
func (c *Cache) RemovedModules() []string {
	return slices.Clone(c.removed)
}

// Reasons returns every invalidation recorded so far, in order.
func (c *Cache) Reasons() []domain.Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.reasons)
}

// CheckResult summarizes the invalidations of this build.
func (c *Cache) CheckResult() domain.CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := domain.CheckResult{
		StartBuildTime: c.current.StartBuildTime,
		CacheDropped:   c.cacheDropped,
		RemovedModules: slices.Clone(c.removed),
		Reasons:        slices.Clone(c.reasons),
	}
	for _, k := range c.latches.Kinds() {
		res.DroppedFamilies = append(res.DroppedFamilies, k.String())
	}
	for _, name := range slices.Sorted(maps.Keys(c.stats)) {
		if c.stats[name].Changed > 0 {
			res.RebuiltModules = append(res.RebuiltModules, name)
		}
	}
	if res.Reasons == nil {
		res.Reasons = []domain.Reason{}
	}
	return res
}

// wipe empties the cache directory except the preserved entries, and the output directory.
func (c *Cache) wipe(ctx context.Context) error {
	preserved := c.cfg.Preserved
	if preserved == nil {
		preserved = domain.DefaultPreserved()
	}

	targets, err := children(c.cfg.CacheDir, preserved)
	if err != nil {
		return err
	}
	if filepath.Clean(c.cfg.OutputDir) != filepath.Clean(c.cfg.CacheDir) {
		out, err := children(c.cfg.OutputDir, nil)
		if err != nil {
			return err
		}
		targets = append(targets, out...)
	}

	if _, err := c.remover.RemoveAll(ctx, targets); err != nil {
		return zerr.Wrap(err, domain.ErrWipeFailed.Error())
	}
	return nil
}

// children lists the entries of dir except the names in keep. A missing dir has none.
func children(dir string, keep []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrWipeFailed.Error()), "path", dir)
	}
	var out []string
	for _, e := range entries {
		if slices.Contains(keep, e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
