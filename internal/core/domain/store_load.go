package domain

import (
	"maps"
	"strings"
)

// SetModuleDependencies replaces the edges whose source lives in the module.
func (s *Store) SetModuleDependencies(module string, deps map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := module + "/"
	for key := range s.dependencies {
		if strings.HasPrefix(key, prefix) {
			delete(s.dependencies, key)
		}
	}
	for key, list := range deps {
		s.dependencies[key] = uniqueOrdered(list)
	}
}

// SetFailedFiles replaces the failed files of a module.
func (s *Store) SetFailedFiles(module string, files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(files) == 0 {
		delete(s.filesWithErrors, module)
		return
	}
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	s.filesWithErrors[module] = set
}

// SetFailedTypescriptModules replaces the modules with fatal type-compilation errors.
func (s *Store) SetFailedTypescriptModules(modules []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedTypescriptModules = make(map[string]struct{}, len(modules))
	for _, m := range modules {
		s.failedTypescriptModules[m] = struct{}{}
	}
}

// SetCachedMinifiedAll replaces every minified hash.
func (s *Store) SetCachedMinifiedAll(hashes map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hashes == nil {
		hashes = make(map[string]string)
	}
	s.cachedMinified = maps.Clone(hashes)
}

// SetModulesStats replaces every module statistic.
func (s *Store) SetModulesStats(stats map[string]ModuleStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stats == nil {
		stats = make(map[string]ModuleStats)
	}
	s.modulesStats = maps.Clone(stats)
}

// uniqueOrdered drops repeated entries while keeping first occurrences in order.
func uniqueOrdered(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
