package domain

import (
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// Config is the resolved project configuration of one build.
type Config struct {
	// Root is the directory holding the project file. Module paths are resolved against it.
	Root string
	// CacheDir holds the store documents and the intermediate outputs.
	CacheDir string
	// OutputDir holds the final outputs.
	OutputDir string
	// LogDir receives the build log artifacts.
	LogDir string
	// CompiledDir holds a generation of pre-compiled sources whose outputs are reused when the
	// content hash matches. Empty disables the overlay.
	CompiledDir string

	// BuilderHash is the content hash of the build tool itself.
	BuilderHash string
	// TemplatesProcessorHash identifies the template compiler version.
	TemplatesProcessorHash string

	// ForceRebuild discards the whole cache.
	ForceRebuild bool
	// Compress registers .gz and .br siblings for compressible outputs.
	Compress bool
	// React enables react mode for compiled templates.
	React bool
	// TscReport enables the typescript error report.
	TscReport bool

	// Flags are the structural build flags fingerprinted between runs.
	Flags map[string]any
	// IndependentFlags never trigger a whole-cache invalidation.
	IndependentFlags []string
	// Preserved lists the cache entries kept when the whole cache is wiped.
	Preserved []string
	// DropRules map compiler source roots to the file family their change invalidates.
	DropRules []DropRule
	// Themes maps theme names to their style parts.
	Themes map[string][]string

	// Modules are the modules of the project.
	Modules []ModuleParams
}

// RunningParameters returns the fingerprint persisted for the next build.
func (c *Config) RunningParameters() RunningParameters {
	return RunningParameters{
		Flags:   c.Flags,
		Modules: c.Modules,
	}
}

// ModuleRoot returns the absolute source root of a module.
func (c *Config) ModuleRoot(m ModuleParams) string {
	p := m.Path
	if p == "" {
		p = m.Name
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// Module returns the named module.
func (c *Config) Module(name string) (ModuleParams, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleParams{}, false
}

// ModuleNames returns the module names in configuration order.
func (c *Config) ModuleNames() []string {
	names := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		names[i] = m.Name
	}
	return names
}

// ModuleForPath finds the module whose source root contains the absolute path and returns the
// path relative to that root. The longest matching root wins.
func (c *Config) ModuleForPath(abs string) (ModuleParams, string, bool) {
	var (
		best    ModuleParams
		bestRel string
		bestLen = -1
	)
	abs = filepath.Clean(abs)
	for _, m := range c.Modules {
		root := c.ModuleRoot(m)
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(root) > bestLen {
			best, bestRel, bestLen = m, NormalizePath(rel), len(root)
		}
	}
	return best, bestRel, bestLen >= 0
}

// IsIndependentFlag reports whether a flag change never invalidates the whole cache.
func (c *Config) IsIndependentFlag(name string) bool {
	for _, f := range c.IndependentFlags {
		if f == name {
			return true
		}
	}
	return false
}

// ValidateBuildDirs rejects a cache, output or log directory that is the project root, lies
// above it, or holds the sources of a module. Those directories are wiped by the build.
func (c *Config) ValidateBuildDirs() error {
	dirs := []struct{ name, path string }{
		{"cache", c.CacheDir},
		{"output", c.OutputDir},
		{"logs", c.LogDir},
	}
	for _, d := range dirs {
		if d.path == "" {
			continue
		}
		if IsWithin(d.path, c.Root) {
			return zerr.With(zerr.With(ErrBuildDirOverlapsSources, d.name, d.path), "root", c.Root)
		}
		for _, m := range c.Modules {
			if IsWithin(d.path, c.ModuleRoot(m)) {
				return zerr.With(zerr.With(ErrBuildDirOverlapsSources, d.name, d.path), "module", m.Name)
			}
		}
	}
	return nil
}

// PathKey converts an absolute path to its key in the dependency graph. Paths inside a module
// become the module name followed by the path within the module; every other path becomes an
// external key.
func (c *Config) PathKey(abs string) string {
	if m, rel, ok := c.ModuleForPath(abs); ok {
		return JoinModulePath(m.Name, rel)
	}
	return ExternalKey(abs)
}
