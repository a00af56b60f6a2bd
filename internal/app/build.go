package app

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/cache"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// BuildOptions configure a single build.
type BuildOptions struct {
	// Force discards the whole cache before building.
	Force bool
}

// Report summarizes one build or check.
type Report struct {
	// Result lists every invalidation of the run.
	Result domain.CheckResult
	// Files is the number of source files seen.
	Files int
	// Changed are the project-relative paths that were (or would be) reprocessed.
	Changed []string
	// Failed are the files that failed to process, per module.
	Failed map[string][]string
	// Garbage are the absolute paths removed, or planned for removal by a check.
	Garbage []string
	// Duration is the wall time of the run.
	Duration time.Duration
}

// source is a walked file that was not read yet.
type source struct {
	module domain.ModuleParams
	path   string
	key    string
}

// verdict is the outcome of the cache check for one source.
type verdict struct {
	file    domain.SourceFile
	key     string
	changed bool
}

// contentsDescription is written to every module output directory after a build.
type contentsDescription struct {
	Module         string   `json:"module"`
	StartBuildTime int64    `json:"startBuildTime"`
	Outputs        []string `json:"outputs"`
}

// Build runs one incremental build of the project.
//
// A build that ends with failed files is saved like any other and returns domain.ErrBuildFailed
// together with its report; the failed files are retried by the next build.
func (a *App) Build(ctx context.Context, opts BuildOptions) (*Report, error) {
	started := time.Now()

	ctx, span := a.tracer.Start(ctx, "build")
	defer span.End()

	cfg, err := a.loadConfig()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if opts.Force {
		cfg.ForceRebuild = true
	}

	c, err := a.openCache(ctx, cfg, a.remover)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if cfg.CompiledDir != "" {
		c.SetCompiledStore(a.repo.Load(ctx, cfg.CompiledDir, cfg.ModuleNames()))
	}

	if err := writeLockfile(cfg.CacheDir); err != nil {
		return nil, err
	}

	verdicts, err := a.check(ctx, cfg, c)
	if err != nil {
		return nil, a.abort(ctx, cfg, c, err)
	}
	changed := changedOnly(verdicts)
	span.SetAttribute("files", len(verdicts))
	span.SetAttribute("changed", len(changed))

	if err := a.process(ctx, cfg, c, changed); err != nil {
		return nil, a.abort(ctx, cfg, c, err)
	}
	a.recordModuleDependencies(c, verdicts)
	if err := a.writeContents(cfg, c); err != nil {
		return nil, a.abort(ctx, cfg, c, err)
	}
	c.Finish()

	if err := a.repo.Save(ctx, c.Current(), cfg.CacheDir, cfg.LogDir, cfg.ModuleNames()); err != nil {
		span.RecordError(err)
		return nil, zerr.Wrap(err, "failed to save build cache")
	}

	garbage, err := c.ListForRemoveFromOutputDir(ctx, cfg.CacheDir, cfg.OutputDir)
	if err == nil {
		err = c.RemoveGarbage(ctx, garbage)
	}
	if err != nil {
		a.logger.Warn(fmt.Sprintf("garbage collection incomplete: %v", err))
	}

	report := &Report{
		Result:   c.CheckResult(),
		Files:    len(verdicts),
		Changed:  keys(changed),
		Failed:   c.FailedFiles(),
		Garbage:  c.Garbage(),
		Duration: time.Since(started),
	}
	if err := writeLogs(cfg.LogDir, report); err != nil {
		return report, err
	}
	if err := removeLockfile(cfg.CacheDir); err != nil {
		return report, err
	}

	if n := failedCount(report.Failed); n > 0 {
		return report, errors.Join(domain.ErrBuildFailed, zerr.With(domain.ErrProcessFailed, "failed_files", n))
	}
	return report, nil
}

// abort marks the generation as broken so the next build starts without cache, and saves it.
func (a *App) abort(ctx context.Context, cfg *domain.Config, c *cache.Cache, cause error) error {
	current := c.Current()
	current.HasCriticalErrors = true
	if err := a.repo.Save(context.WithoutCancel(ctx), current, cfg.CacheDir, cfg.LogDir, cfg.ModuleNames()); err != nil {
		a.logger.Warn(fmt.Sprintf("failed to record the aborted build: %v", err))
	}
	return zerr.Wrap(cause, "build aborted")
}

// scan walks every module and returns its sources. A file below a nested module belongs to the
// innermost one, and files in the build directories are skipped.
func (a *App) scan(cfg *domain.Config) []source {
	var out []source
	for _, m := range cfg.Modules {
		for p := range a.walker.WalkFiles(cfg.ModuleRoot(m), nil) {
			if isBuildArtifact(cfg, p) {
				continue
			}
			owner, rel, ok := cfg.ModuleForPath(p)
			if !ok || owner.Name != m.Name {
				continue
			}
			out = append(out, source{module: m, path: p, key: domain.JoinModulePath(m.Name, rel)})
		}
	}
	slices.SortFunc(out, func(x, y source) int { return cmp.Compare(x.key, y.key) })
	return out
}

// deletedFiles returns the keys recorded by the previous build that no longer exist.
func deletedFiles(cfg *domain.Config, last *domain.Store, sources []source) []string {
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		seen[s.key] = struct{}{}
	}
	var deleted []string
	for _, m := range cfg.Modules {
		for _, rel := range last.FilePaths(m.Name) {
			key := domain.JoinModulePath(m.Name, rel)
			if _, ok := seen[key]; !ok {
				deleted = append(deleted, key)
			}
		}
	}
	return deleted
}

// check purges deleted files and asks the cache for the verdict of every source. Files reported
// unchanged are checked once more against latches flipped by files seen after them.
func (a *App) check(ctx context.Context, cfg *domain.Config, c *cache.Cache) ([]verdict, error) {
	ctx, span := a.tracer.Start(ctx, "check")
	defer span.End()

	sources := a.scan(cfg)
	c.RemoveDeletedFiles(deletedFiles(cfg, c.Last(), sources))
	c.SetThemes(ctx, cfg.Themes)

	verdicts := make([]verdict, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, s := range sources {
		g.Go(func() error {
			info, err := os.Stat(s.path)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", s.path)
			}
			//nolint:gosec // Path comes from walking a configured module root
			data, err := os.ReadFile(s.path)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", s.path)
			}
			file := domain.SourceFile{Path: s.path, Contents: data, ModTime: info.ModTime(), Module: s.module}
			changed, err := c.IsFileChanged(gctx, file)
			if err != nil {
				return err
			}
			verdicts[i] = verdict{file: file, key: s.key, changed: changed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(c.Latches().Kinds()) > 0 {
		for i := range verdicts {
			if !verdicts[i].changed {
				verdicts[i].changed = c.Recheck(ctx, verdicts[i].file)
			}
		}
	}
	return verdicts, nil
}

// process runs the processor over every changed file. One file passes through all of its steps
// in a single goroutine.
func (a *App) process(ctx context.Context, cfg *domain.Config, c *cache.Cache, changed []verdict) error {
	ctx, span := a.tracer.Start(ctx, "process")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, v := range changed {
		g.Go(func() error {
			return a.processFile(gctx, cfg, c, v)
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *App) processFile(ctx context.Context, cfg *domain.Config, c *cache.Cache, v verdict) error {
	module := v.file.Module
	_, rel := domain.SplitModulePath(v.key)

	if outs, ok := c.CompiledOutputs(module.Name, rel, a.hasher.CalcHash(v.file.Contents)); ok {
		return a.reuseCompiled(cfg, c, v, outs)
	}

	res, err := a.processor.Process(ctx, cfg, v.file)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		a.logger.Warn(fmt.Sprintf("%s: %v", v.key, err))
		c.MarkFileAsFailed(ctx, v.key)
		return nil
	}

	for _, out := range res.Outputs {
		c.AddOutputFile(v.file.Path, out, module)
	}
	c.AddDependencies(cfg.Root, v.file.Path, res.Imports)
	for _, imp := range res.Imports {
		if !filepath.IsAbs(imp) {
			imp = filepath.Join(cfg.Root, imp)
		}
		if owner, _, ok := cfg.ModuleForPath(imp); ok && owner.Name != module.Name {
			c.AddExternalDependency(module.Name, rel, owner.Name)
		}
	}
	return nil
}

// reuseCompiled copies the outputs of a matching pre-compiled source into the output directory.
func (a *App) reuseCompiled(cfg *domain.Config, c *cache.Cache, v verdict, outs []string) error {
	for _, out := range outs {
		src := filepath.Join(cfg.CompiledDir, filepath.FromSlash(out))
		dst := filepath.Join(cfg.OutputDir, filepath.FromSlash(out))
		if err := copyFile(src, dst); err != nil {
			return err
		}
		c.AddOutputFile(v.file.Path, dst, v.file.Module)
	}
	a.logger.Debug(v.key + ": reused pre-compiled outputs")
	return nil
}

// recordModuleDependencies aggregates the module graph from the external dependencies of every
// file, changed or migrated.
func (a *App) recordModuleDependencies(c *cache.Cache, verdicts []verdict) {
	for _, v := range verdicts {
		module, rel := domain.SplitModulePath(v.key)
		if deps := c.Current().ExternalDependencies(module, rel); len(deps) > 0 {
			c.AddModuleDependencies(module, deps)
		}
	}
}

// writeContents writes the output description of every module and registers it as a module
// output, so it survives garbage collection.
func (a *App) writeContents(cfg *domain.Config, c *cache.Cache) error {
	current := c.Current()
	for _, m := range cfg.Modules {
		path := filepath.Join(cfg.OutputDir, m.Name, domain.OutputDescriptionFile)
		desc := contentsDescription{
			Module:         m.Name,
			StartBuildTime: current.StartBuildTime,
			Outputs:        slices.Sorted(maps.Keys(current.ModuleOutputFilesSet(m.Name))),
		}
		if err := writeJSONFile(path, desc); err != nil {
			return err
		}
		c.AddModuleOutput(m.Name, path)
	}
	return nil
}

func changedOnly(verdicts []verdict) []verdict {
	var out []verdict
	for _, v := range verdicts {
		if v.changed {
			out = append(out, v)
		}
	}
	return out
}

func keys(verdicts []verdict) []string {
	out := make([]string, len(verdicts))
	for i, v := range verdicts {
		out[i] = v.key
	}
	return out
}

func failedCount(failed map[string][]string) int {
	n := 0
	for _, files := range failed {
		n += len(files)
	}
	return n
}

// writeLockfile marks the build as running. The file is removed only after a successful save.
func writeLockfile(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrBuildLockFailed.Error()), "path", cacheDir)
	}
	path := domain.BuilderLockFile(cacheDir)
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrBuildLockFailed.Error()), "path", path)
	}
	return nil
}

func removeLockfile(cacheDir string) error {
	path := domain.BuilderLockFile(cacheDir)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return zerr.With(zerr.Wrap(err, domain.ErrBuildLockFailed.Error()), "path", path)
	}
	return nil
}

// writeLogs writes the invalidation reasons and the removed garbage of a build to the log directory.
func writeLogs(logDir string, report *Report) error {
	garbage := report.Garbage
	if garbage == nil {
		garbage = []string{}
	}
	if err := writeJSONFile(filepath.Join(logDir, domain.CheckResultFile), report.Result); err != nil {
		return zerr.Wrap(err, domain.ErrLogWriteFailed.Error())
	}
	if err := writeJSONFile(filepath.Join(logDir, domain.GarbageFile), garbage); err != nil {
		return zerr.Wrap(err, domain.ErrLogWriteFailed.Error())
	}
	return nil
}

func writeJSONFile(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "path", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", path)
	}
	return nil
}

func copyFile(src, dst string) error {
	//nolint:gosec // Path comes from the configured compiled directory
	data, err := os.ReadFile(src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "path", filepath.Dir(dst))
	}
	if err := os.WriteFile(dst, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", dst)
	}
	return nil
}
