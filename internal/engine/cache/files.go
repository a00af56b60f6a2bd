package cache

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/invalidation"
)

// IsFileChanged reports whether a source must be reprocessed.
//
// The file gets a record in the current generation either way. When it is unchanged, every
// cached record of the file is carried over from the previous generation.
func (c *Cache) IsFileChanged(ctx context.Context, file domain.SourceFile) (bool, error) {
	module := file.Module
	rel := domain.RelativePath(c.cfg.ModuleRoot(module), file.Path)
	hash := c.hasher.CalcHash(file.Contents)

	verdict := invalidation.Verdict{Changed: true, Reason: "hash check disabled for the module"}
	if module.HashCheckEnabled() {
		var err error
		verdict, err = c.checker.IsFileChanged(ctx, invalidation.FileQuery{Module: module.Name, Rel: rel, Hash: hash})
		if err != nil {
			return false, err
		}
	}

	key := domain.JoinModulePath(module.Name, rel)
	c.countFile(module.Name, key, verdict.Changed)
	if !verdict.Changed {
		c.migrateFromLastStore(module.Name, rel)
		return false, nil
	}

	c.current.EnsureFileMeta(module.Name, rel, hash)
	c.report(ctx, "", domain.Reason{Scope: domain.ScopeFile, Module: module.Name, Path: key, Message: verdict.Reason})
	c.CheckForDropCacheCases(ctx, file.Path, key)
	return true, nil
}

// Recheck applies the drop latches again to a file reported unchanged earlier in this build. When
// a latch flipped since, the file becomes changed and its migrated outputs are cleared.
func (c *Cache) Recheck(ctx context.Context, file domain.SourceFile) bool {
	module := file.Module.Name
	rel := domain.RelativePath(c.cfg.ModuleRoot(file.Module), file.Path)
	for _, kind := range c.latches.Kinds() {
		if !domain.MatchesDropKind(kind, rel) {
			continue
		}
		meta, _ := c.current.FileMeta(module, rel)
		c.current.SetFileMeta(module, rel, domain.FileMeta{Hash: meta.Hash})

		key := domain.JoinModulePath(module, rel)
		c.countFile(module, key, true)
		c.report(ctx, "", domain.Reason{
			Scope:   domain.ScopeFile,
			Module:  module,
			Path:    key,
			Message: "cache dropped for " + kind.String() + " files",
		})
		return true
	}
	return false
}

// migrateFromLastStore copies the records of an unchanged file into the current generation.
func (c *Cache) migrateFromLastStore(module, rel string) {
	meta, ok := c.last.FileMeta(module, rel)
	if !ok {
		return
	}
	c.current.SetFileMeta(module, rel, meta)

	// Artifact kinds are disjoint namespaces, so every bucket holding the file is copied.
	for _, kind := range c.last.ArtifactKinds(module) {
		if data, ok := c.last.Artifact(module, kind, rel); ok {
			c.current.SetArtifact(module, kind, rel, data)
		}
	}
	for _, dep := range c.last.ExternalDependencies(module, rel) {
		c.current.AddExternalDependency(module, rel, dep)
	}

	key := domain.JoinModulePath(module, rel)
	if deps, ok := c.last.Dependencies(key); ok {
		c.current.AddDependencies(key, deps...)
	}
	if h, ok := c.last.CachedMinified(key); ok {
		c.current.SetCachedMinified(key, h)
	}
}

func (c *Cache) countFile(module, key string, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.stats[module]
	if !ok {
		st = &domain.ModuleStats{}
		c.stats[module] = st
	}
	wasChanged, seen := c.counted[key]
	if !seen {
		st.Files++
	}
	if changed && !wasChanged {
		st.Changed++
	}
	c.counted[key] = wasChanged || changed
}

// ProjectPath converts a path to the key used by the dependency graph. Paths inside a module
// become the module name followed by the path within the module; other paths become external
// keys. A relative path that starts with a module name is taken as a key already; any other
// relative path is resolved against root.
func (c *Cache) ProjectPath(root, p string) string {
	if filepath.IsAbs(p) {
		return c.cfg.PathKey(p)
	}
	key := domain.StripLeadingSlash(domain.NormalizePath(p))
	if module, _ := domain.SplitModulePath(key); module != "" {
		if _, ok := c.cfg.Module(module); ok {
			return key
		}
	}
	return c.cfg.PathKey(filepath.Join(root, filepath.FromSlash(key)))
}

// AddDependencies records that filePath imports every path in imports. Repeated edges are ignored.
func (c *Cache) AddDependencies(root, filePath string, imports []string) {
	from := c.ProjectPath(root, filePath)
	deps := make([]string, 0, len(imports))
	for _, imp := range imports {
		if to := c.ProjectPath(root, imp); to != from {
			deps = append(deps, to)
		}
	}
	c.current.AddDependencies(from, deps...)
}

// AllDependencies returns every path the given path transitively depended on in the previous build.
func (c *Cache) AllDependencies(p string) []string {
	return c.checker.Index().AllDependencies(c.ProjectPath(c.cfg.Root, p))
}

// AllDependents returns every path that transitively depended on the given path in the previous build.
func (c *Cache) AllDependents(p string) []string {
	return c.checker.Index().AllDependents(c.ProjectPath(c.cfg.Root, p))
}

// AddOutputFile records that source produced output. Compressed siblings of compressible
// outputs are registered too, so they are collected with the primary artifact.
func (c *Cache) AddOutputFile(source, output string, module domain.ModuleParams) {
	rel := domain.RelativePath(c.cfg.ModuleRoot(module), source)
	out := domain.RelativePath(c.cfg.OutputDir, output)

	c.current.AddFileOutput(module.Name, rel, out)
	if c.cfg.Compress && domain.IsCompressible(out) {
		c.current.AddFileOutput(module.Name, rel, out+".gz")
		c.current.AddFileOutput(module.Name, rel, out+".br")
	}
}

// AddModuleOutput records an output that belongs to the module as a whole.
func (c *Cache) AddModuleOutput(module, output string) {
	c.current.AddModuleOutput(module, domain.RelativePath(c.cfg.OutputDir, output))
}

// MarkFileAsFailed records a processing failure of a project-relative path. A failed TypeScript
// source fails the type compilation of its whole module.
func (c *Cache) MarkFileAsFailed(ctx context.Context, p string) {
	module, rel := domain.SplitModulePath(p)

	c.mu.Lock()
	set, ok := c.failed[module]
	if !ok {
		set = make(map[string]struct{})
		c.failed[module] = set
	}
	set[rel] = struct{}{}
	c.mu.Unlock()

	if domain.IsTypescript(rel) && !c.current.IsTypescriptFailed(module) {
		c.current.MarkTypescriptFailed(module)
		if c.hooks != nil {
			c.hooks.MarkFailedModule(ctx, module, "typescript compilation failed in "+p)
		}
	}
}

// FailedFiles returns the failed files of this build per module, sorted.
func (c *Cache) FailedFiles() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.failed))
	for module, set := range c.failed {
		files := make([]string, 0, len(set))
		for f := range set {
			files = append(files, f)
		}
		slices.Sort(files)
		out[module] = files
	}
	return out
}

// StoreFailedFiles moves the failures of this build into the current generation, so they are
// reprocessed by the next build whatever their hash.
func (c *Cache) StoreFailedFiles() {
	var tsc []string
	for module, files := range c.FailedFiles() {
		for _, f := range files {
			c.current.MarkFailed(module, f)
			if domain.IsTypescript(f) {
				tsc = append(tsc, domain.JoinModulePath(module, f))
			}
		}
	}
	slices.Sort(tsc)
	c.current.Extra.TscFilesWithErrors = tsc
}

// Finish stores the failures, module statistics and module hashes into the current generation.
// It must be called once, after the last file was processed.
func (c *Cache) Finish() {
	c.StoreFailedFiles()
	failed := c.FailedFiles()

	c.mu.Lock()
	stats := make(map[string]domain.ModuleStats, len(c.stats))
	for name, st := range c.stats {
		stats[name] = domain.ModuleStats{Files: st.Files, Changed: st.Changed, Failed: len(failed[name])}
	}
	c.mu.Unlock()

	for name, st := range stats {
		c.current.SetModuleStats(name, st)
	}
	for _, name := range c.cfg.ModuleNames() {
		c.current.SetModuleHash(name, c.moduleHash(name))
	}
}

// moduleHash digests the sorted path and hash pairs of the module.
func (c *Cache) moduleHash(module string) string {
	var b strings.Builder
	for _, rel := range c.current.FilePaths(module) {
		meta, _ := c.current.FileMeta(module, rel)
		b.WriteString(rel)
		b.WriteByte(0)
		b.WriteString(meta.Hash)
		b.WriteByte('\n')
	}
	return c.hasher.CalcHash([]byte(b.String()))
}

// IsMinifiedCached reports whether the path was minified from identical content last build.
func (c *Cache) IsMinifiedCached(p, hash string) bool {
	prev, ok := c.last.CachedMinified(c.ProjectPath(c.cfg.Root, p))
	return ok && prev == hash
}

// StoreMinified records the content hash a path was minified from.
func (c *Cache) StoreMinified(p, hash string) {
	c.current.SetCachedMinified(c.ProjectPath(c.cfg.Root, p), hash)
}

// AddExternalDependency records that a file of module depends on another module.
func (c *Cache) AddExternalDependency(module, rel, dependency string) {
	c.current.AddExternalDependency(module, domain.StripLeadingSlash(domain.NormalizePath(rel)), dependency)
}

// SetCompiledStore installs a generation of pre-compiled sources.
func (c *Cache) SetCompiledStore(compiled *domain.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled = compiled
}

// CompiledOutputs returns the outputs of a pre-compiled source with the same content hash.
func (c *Cache) CompiledOutputs(module, rel, hash string) ([]string, bool) {
	c.mu.Lock()
	compiled := c.compiled
	c.mu.Unlock()
	if compiled == nil {
		return nil, false
	}
	meta, ok := compiled.FileMeta(module, rel)
	if !ok || meta.Hash != hash {
		return nil, false
	}
	return meta.Output, true
}

// IsCompiledSource reports whether a pre-compiled source with the same content hash exists.
func (c *Cache) IsCompiledSource(module, rel, hash string) bool {
	_, ok := c.CompiledOutputs(module, rel, hash)
	return ok
}
