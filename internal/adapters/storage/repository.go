// Package storage persists build generations as JSON documents.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/incr/internal/adapters/lock"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ioLimit bounds concurrent document reads and writes.
const ioLimit = 50

var _ ports.StoreRepository = (*Repository)(nil)

// Repository implements ports.StoreRepository with one JSON document per concern and a pair of
// documents per module, each pair guarded by an advisory lock.
type Repository struct {
	logger    ports.Logger
	lockerFor func(cacheDir string) ports.Locker
}

// NewRepository creates a Repository keeping its lock files below each cache directory.
func NewRepository(logger ports.Logger) *Repository {
	return &Repository{
		logger: logger,
		lockerFor: func(cacheDir string) ports.Locker {
			return lock.NewLocker(domain.LockFilesDir(cacheDir))
		},
	}
}

// NewRepositoryWithLocker creates a Repository that uses locker for every cache directory.
func NewRepositoryWithLocker(logger ports.Logger, locker ports.Locker) *Repository {
	return &Repository{
		logger:    logger,
		lockerFor: func(string) ports.Locker { return locker },
	}
}

// Load reads the generation saved in cacheDir. Modules named by the saved running parameters are
// loaded too, so modules removed from the project can still be cleaned up.
func (r *Repository) Load(ctx context.Context, cacheDir string, modules []string) *domain.Store {
	var info builderInfo
	found, err := readJSON(filepath.Join(cacheDir, domain.BuilderInfoFile), &info)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("previous build info is unusable, starting without cache: %v", err))
		return domain.NewStore()
	}
	if !found {
		return domain.NewStore()
	}

	store := domain.NewStore()
	store.HashOfBuilder = info.HashOfBuilder
	store.StartBuildTime = info.StartBuildTime
	store.TemplatesProcessorHash = info.TemplatesProcessorHash
	store.HasCriticalErrors = info.HasCriticalErrors

	store.RunningParameters = loadOptional(r.logger, cacheDir, domain.RunningParametersFile, domain.RunningParameters{})

	var (
		extra      domain.ExtraConfig
		cachePaths domain.CachePaths
		themes     domain.ThemesMeta
		regions    domain.RegionNodes
		failedTS   []string
		minified   map[string]string
		stats      map[string]domain.ModuleStats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ioLimit)

	g.Go(func() error {
		extra = loadOptional(r.logger, cacheDir, domain.ExtraConfigFile, domain.ExtraConfig{})
		return nil
	})
	g.Go(func() error {
		cachePaths = loadOptional(r.logger, cacheDir, domain.CachePathFile, domain.CachePaths{})
		return nil
	})
	g.Go(func() error {
		themes = loadOptional(r.logger, cacheDir, domain.ThemesMetaFile, domain.NewThemesMeta())
		return nil
	})
	g.Go(func() error {
		regions = loadOptional(r.logger, cacheDir, domain.RegionNodesFile, domain.RegionNodes{})
		return nil
	})
	g.Go(func() error {
		failedTS = loadOptional(r.logger, cacheDir, domain.FailedTypescriptModulesFile, []string{})
		return nil
	})
	g.Go(func() error {
		minified = loadOptional(r.logger, cacheDir, domain.CachedMinifiedFile, map[string]string{})
		return nil
	})
	g.Go(func() error {
		stats = loadOptional(r.logger, cacheDir, domain.ModulesStatsFile, map[string]domain.ModuleStats{})
		return nil
	})

	locker := r.lockerFor(cacheDir)
	for _, module := range loadedModules(modules, store.RunningParameters) {
		g.Go(func() error {
			r.loadModule(ctx, locker, store, cacheDir, module)
			return nil
		})
	}
	_ = g.Wait()

	store.Extra = extra
	store.CachePaths = cachePaths
	store.SetThemesMeta(themes)
	store.SetRegionNodes(regions)
	store.SetFailedTypescriptModules(failedTS)
	store.SetCachedMinifiedAll(minified)
	store.SetModulesStats(stats)

	return store
}

// loadOptional reads one optional document. Missing documents are silent, broken ones are
// logged, and in both cases def is returned.
func loadOptional[T any](logger ports.Logger, dir, name string, def T) T {
	var value T
	found, err := readJSON(filepath.Join(dir, name), &value)
	if err != nil {
		logger.Warn(fmt.Sprintf("ignoring %s: %v", name, err))
		return def
	}
	if !found {
		return def
	}
	return value
}

func (r *Repository) loadModule(ctx context.Context, locker ports.Locker, store *domain.Store, cacheDir, module string) {
	dir := domain.ModuleCacheDir(cacheDir, module)
	if _, err := os.Stat(dir); err != nil {
		return
	}

	err := locker.WithLock(ctx, dir, func() error {
		var inputs moduleInputs
		found, err := readJSON(filepath.Join(dir, domain.InputPathsFile), &inputs)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("ignoring %s of module %s: %v", domain.InputPathsFile, module, err))
		} else if found {
			store.SetModuleInputs(module, inputs.ModuleInputs)
			store.SetFailedFiles(module, inputs.FilesWithErrors)
		}

		deps := make(map[string][]string)
		found, err = readJSON(filepath.Join(dir, domain.DependenciesFile), &deps)
		if err != nil {
			r.logger.Warn(fmt.Sprintf("ignoring %s of module %s: %v", domain.DependenciesFile, module, err))
		} else if found {
			store.SetModuleDependencies(module, deps)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn(fmt.Sprintf("skipping cache of module %s: %v", module, err))
	}
}

// Save writes the generation. Every document is attempted and all failures are returned.
func (r *Repository) Save(ctx context.Context, store *domain.Store, cacheDir, logDir string, modules []string) error {
	if err := os.MkdirAll(cacheDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", cacheDir)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ioLimit)

	docs := []struct {
		name  string
		value any
	}{
		{domain.BuilderInfoFile, builderInfo{
			HashOfBuilder:          store.HashOfBuilder,
			StartBuildTime:         store.StartBuildTime,
			TemplatesProcessorHash: store.TemplatesProcessorHash,
			HasCriticalErrors:      store.HasCriticalErrors,
		}},
		{domain.RunningParametersFile, store.RunningParameters},
		{domain.ExtraConfigFile, store.Extra},
		{domain.CachePathFile, domain.CachePaths{Cache: cacheDir, Logs: logDir}},
		{domain.ThemesMetaFile, store.ThemesMeta()},
		{domain.RegionNodesFile, store.RegionNodes()},
		{domain.FailedTypescriptModulesFile, store.FailedTypescriptModules()},
		{domain.CachedMinifiedFile, store.CachedMinifiedSnapshot()},
		{domain.ModulesStatsFile, store.ModulesStats()},
	}
	for _, doc := range docs {
		g.Go(func() error {
			record(writeJSON(filepath.Join(cacheDir, doc.name), doc.value))
			return nil
		})
	}

	locker := r.lockerFor(cacheDir)
	failed := store.FailedFiles()
	for _, module := range modules {
		g.Go(func() error {
			record(r.saveModule(ctx, locker, store, cacheDir, module, failed[module]))
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (r *Repository) saveModule(
	ctx context.Context,
	locker ports.Locker,
	store *domain.Store,
	cacheDir, module string,
	failed []string,
) error {
	inputs, ok := store.ModuleInputs(module)
	if !ok {
		return nil
	}
	dir := domain.ModuleCacheDir(cacheDir, module)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", dir)
	}

	return locker.WithLock(ctx, dir, func() error {
		doc := moduleInputs{ModuleInputs: inputs, FilesWithErrors: failed}
		if err := writeJSON(filepath.Join(dir, domain.InputPathsFile), doc); err != nil {
			return err
		}
		return writeJSON(filepath.Join(dir, domain.DependenciesFile), store.ModuleDependencyGraph(module))
	})
}

// loadedModules returns the requested modules followed by the modules of the saved parameters.
func loadedModules(modules []string, params domain.RunningParameters) []string {
	out := slices.Clone(modules)
	for _, m := range params.Modules {
		if m.Name != "" && !slices.Contains(out, m.Name) {
			out = append(out, m.Name)
		}
	}
	return out
}

// readJSON decodes the document at path into target. A missing document reports false without
// an error.
func readJSON(path string, target any) (bool, error) {
	//nolint:gosec // Path is constructed from the cache directory and a fixed file name
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "path", path)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", path)
	}
	return true, nil
}

// writeJSON encodes value to a temporary file next to path and renames it into place, so a reader
// never sees a partial document.
func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "path", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return nil
}
