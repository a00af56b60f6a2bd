// Package invalidation decides whether previous build results remain valid, for the whole
// cache, for one module and for one file.
package invalidation

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
)

const (
	// DependencyCheckLimit bounds concurrent dependency hash checks of one file.
	DependencyCheckLimit = 20

	// VersionFlag is fingerprinted by presence only. Changing the version string alone keeps the cache.
	VersionFlag = "version"
)

// Policy holds the read-only file system probes used by the decisions.
type Policy struct {
	prober ports.FileProber
	hasher ports.Hasher
}

// NewPolicy creates a new Policy.
func NewPolicy(prober ports.FileProber, hasher ports.Hasher) *Policy {
	return &Policy{prober: prober, hasher: hasher}
}

type wholeCacheCheck func(*Policy, context.Context, *domain.Store, *domain.Store, *domain.Config) (string, bool)

// wholeCacheChecks run in order; the first that fires wins.
var wholeCacheChecks = []wholeCacheCheck{
	(*Policy).checkForceRebuild,
	(*Policy).checkCrashedBuild,
	(*Policy).checkUnknownBuilder,
	(*Policy).checkCriticalErrors,
	(*Policy).checkBuilderChanged,
	(*Policy).checkStructuralFlags,
	(*Policy).checkVersionToggled,
	(*Policy).checkOutputDescriptions,
	(*Policy).checkOutputRoot,
	(*Policy).checkCacheRelocated,
}

// HasIncompatibleChanges reports whether the previous generation must be discarded as a whole,
// with the reason of the first check that fired. It must complete before any file is checked.
func (p *Policy) HasIncompatibleChanges(
	ctx context.Context,
	last, current *domain.Store,
	cfg *domain.Config,
) (domain.Reason, bool) {
	for _, check := range wholeCacheChecks {
		if msg, fired := check(p, ctx, last, current, cfg); fired {
			return domain.Reason{Scope: domain.ScopeProject, Message: msg}, true
		}
	}
	return domain.Reason{}, false
}

func (*Policy) checkForceRebuild(_ context.Context, _, _ *domain.Store, cfg *domain.Config) (string, bool) {
	return "force rebuild requested", cfg.ForceRebuild
}

func (p *Policy) checkCrashedBuild(_ context.Context, _, _ *domain.Store, cfg *domain.Config) (string, bool) {
	lock := domain.BuilderLockFile(cfg.CacheDir)
	exists, err := p.prober.Exists(lock)
	if err != nil {
		return "cannot check build lockfile: " + err.Error(), true
	}
	return "lockfile of an unfinished build found at " + lock, exists
}

func (*Policy) checkUnknownBuilder(_ context.Context, last, _ *domain.Store, _ *domain.Config) (string, bool) {
	return "no usable cache from a previous build", last.HashOfBuilder == domain.UnknownBuilderHash
}

func (*Policy) checkCriticalErrors(_ context.Context, last, _ *domain.Store, _ *domain.Config) (string, bool) {
	return "previous build finished with critical errors", last.HasCriticalErrors
}

func (*Policy) checkBuilderChanged(_ context.Context, last, current *domain.Store, _ *domain.Config) (string, bool) {
	return "builder code changed", last.HashOfBuilder != current.HashOfBuilder
}

func (*Policy) checkStructuralFlags(_ context.Context, last, current *domain.Store, cfg *domain.Config) (string, bool) {
	prev, next := last.RunningParameters.Flags, current.RunningParameters.Flags
	keys := slices.Sorted(maps.Keys(prev))
	for k := range next {
		if _, ok := prev[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		if k == VersionFlag || cfg.IsIndependentFlag(k) {
			continue
		}
		if !domain.SameJSON(prev[k], next[k]) {
			return fmt.Sprintf("build flag %q changed", k), true
		}
	}
	return "", false
}

func (*Policy) checkVersionToggled(_ context.Context, last, current *domain.Store, _ *domain.Config) (string, bool) {
	was := flagEnabled(last.RunningParameters.Flags[VersionFlag])
	is := flagEnabled(current.RunningParameters.Flags[VersionFlag])
	if was == is {
		return "", false
	}
	if is {
		return "version flag turned on", true
	}
	return "version flag turned off", true
}

func flagEnabled(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

// checkOutputDescriptions only probes modules built by the previous generation.
func (p *Policy) checkOutputDescriptions(ctx context.Context, last, _ *domain.Store, cfg *domain.Config) (string, bool) {
	var paths []string
	for _, m := range cfg.Modules {
		if _, built := last.RunningParameters.Module(m.Name); built {
			paths = append(paths, filepath.Join(cfg.OutputDir, m.Name, domain.OutputDescriptionFile))
		}
	}
	if len(paths) == 0 {
		return "", false
	}

	missing, err := p.prober.Missing(ctx, paths)
	if err != nil {
		return "cannot check output descriptions: " + err.Error(), true
	}
	if len(missing) > 0 {
		return "output description is missing: " + missing[0], true
	}
	return "", false
}

func (p *Policy) checkOutputRoot(_ context.Context, _, _ *domain.Store, cfg *domain.Config) (string, bool) {
	exists, err := p.prober.Exists(cfg.OutputDir)
	if err != nil {
		return "cannot check output directory: " + err.Error(), true
	}
	return "output directory is missing: " + cfg.OutputDir, !exists
}

func (*Policy) checkCacheRelocated(_ context.Context, last, _ *domain.Store, cfg *domain.Config) (string, bool) {
	prev := last.CachePaths.Cache
	if prev == "" || filepath.Clean(prev) == filepath.Clean(cfg.CacheDir) {
		return "", false
	}
	return fmt.Sprintf("cache directory moved from %s to %s", prev, cfg.CacheDir), true
}

// ForceModuleRebuild returns the modules present in both parameter sets whose output-affecting
// parameters differ, in current order.
func ForceModuleRebuild(last, current domain.RunningParameters) []string {
	var out []string
	for _, m := range current.Modules {
		prev, ok := last.Module(m.Name)
		if !ok {
			continue
		}
		if !domain.SameJSON(prev.Fingerprint(), m.Fingerprint()) {
			out = append(out, m.Name)
		}
	}
	return out
}
