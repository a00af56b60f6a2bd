package cache

import (
	"context"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/engine/depgraph"
)

// SetDropCache flips the latch of kind for the rest of the build. Only the first call per kind
// is logged and reported.
func (c *Cache) SetDropCache(ctx context.Context, kind domain.DropKind, reason string) {
	if !c.latches.Set(kind) {
		return
	}
	c.report(ctx, kind.String(), domain.Reason{
		Scope:   domain.ScopeProject,
		Message: "cache dropped for " + kind.String() + " files: " + reason,
	})
}

// CheckForDropCacheCases flips the latch of every drop rule whose compiler source root contains
// the changed file. prettyRelativePath is the project-relative form of prettyPath.
func (c *Cache) CheckForDropCacheCases(ctx context.Context, prettyPath, prettyRelativePath string) {
	rules := c.cfg.DropRules
	if rules == nil {
		rules = domain.DefaultDropRules()
	}
	rel := domain.StripLeadingSlash(domain.NormalizePath(prettyRelativePath))
	for _, rule := range rules {
		prefix := strings.TrimSuffix(rule.Prefix, "/")
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			c.SetDropCache(ctx, rule.Kind, prettyPath+" changed")
		}
	}
}

// SetThemes records the themes of this build. A different set of theme names than the previous
// build drops every cached style.
func (c *Cache) SetThemes(ctx context.Context, themes map[string][]string) {
	meta := domain.NewThemesMeta()
	for name, parts := range themes {
		meta.Themes[name] = slices.Clone(parts)
		for _, part := range parts {
			meta.ThemesMap[part] = name
		}
	}
	prev := c.last.ThemesMeta()
	meta.CSSVariablesOptions = prev.CSSVariablesOptions
	meta.FallbackList = prev.FallbackList
	meta.MissingThemes = prev.MissingThemes
	c.current.SetThemesMeta(meta)

	if c.last.IsFirstBuild() {
		return
	}
	if !slices.Equal(prev.ThemeNames(), slices.Sorted(maps.Keys(themes))) {
		c.SetDropCache(ctx, domain.DropLess, "themes changed")
	}
}

// AddModuleDependencies records the modules a module depends on at runtime.
func (c *Cache) AddModuleDependencies(module string, deps []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range deps {
		if d != module && !slices.Contains(c.moduleDeps[module], d) {
			c.moduleDeps[module] = append(c.moduleDeps[module], d)
		}
	}
}

// ModuleDependencies returns a copy of the module dependency graph.
func (c *Cache) ModuleDependencies() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.moduleDeps))
	for k, v := range c.moduleDeps {
		out[k] = slices.Clone(v)
	}
	return out
}

// ModuleClosure returns every module the given module transitively depends on.
func (c *Cache) ModuleClosure(module string) []string {
	graph := c.ModuleDependencies()
	return depgraph.Closure(module, func(m string) []string { return graph[m] })
}
