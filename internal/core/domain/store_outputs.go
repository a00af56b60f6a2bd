package domain

import (
	"maps"
	"slices"
)

// OutputFilesSet returns every output recorded for any input path of any module, together with
// the auxiliary module-level outputs.
func (s *Store) OutputFilesSet() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, m := range s.inputPaths {
		for _, out := range m.Output {
			set[out] = struct{}{}
		}
		for _, meta := range m.Paths {
			for _, out := range meta.Output {
				set[out] = struct{}{}
			}
		}
	}
	return set
}

// ModuleOutputFilesSet returns every output recorded for one module.
func (s *Store) ModuleOutputFilesSet(module string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	m, ok := s.inputPaths[module]
	if !ok {
		return set
	}
	for _, out := range m.Output {
		set[out] = struct{}{}
	}
	for _, meta := range m.Paths {
		for _, out := range meta.Output {
			set[out] = struct{}{}
		}
	}
	return set
}

// FileHasCollisions reports whether the logical resource of rel also exists in the module under
// another extension of its family.
func (s *Store) FileHasCollisions(module, rel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasCollisions(module, rel)
}

func (s *Store) hasCollisions(module, rel string) bool {
	m, ok := s.inputPaths[module]
	if !ok {
		return false
	}
	for _, partner := range CollisionPartners(rel) {
		if _, exists := m.Paths[partner]; exists {
			return true
		}
	}
	return false
}

// OutputFilesSetForDeletedFiles returns the outputs that are safe to remove for sources known to be
// deleted, and purges those sources from the generation.
//
// When a deleted source collides with a surviving source of the same resource, only outputs the
// partner does not also produce are returned, and the source key itself is returned in their place
// when no partner produces it. On the first build nothing was produced by this generation, so the
// returned set is empty.
func (s *Store) OutputFilesSetForDeletedFiles(deleted []string, isFirstBuild bool) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]struct{})
	for _, p := range deleted {
		module, rel := SplitModulePath(p)
		m, ok := s.inputPaths[module]
		if !ok {
			continue
		}
		meta, ok := m.Paths[rel]
		if !ok {
			continue
		}
		if !isFirstBuild {
			if s.hasCollisions(module, rel) {
				shared := s.partnerOutputs(m, rel)
				key := JoinModulePath(module, rel)
				if _, taken := shared[key]; !taken {
					result[key] = struct{}{}
				}
				for _, out := range meta.Output {
					if _, taken := shared[out]; !taken {
						result[out] = struct{}{}
					}
				}
			} else {
				for _, out := range meta.Output {
					result[out] = struct{}{}
				}
			}
		}
		s.removeFileLocked(module, rel)
	}
	return result
}

func (s *Store) partnerOutputs(m *ModuleInputs, rel string) map[string]struct{} {
	shared := make(map[string]struct{})
	for _, partner := range CollisionPartners(rel) {
		meta, ok := m.Paths[partner]
		if !ok {
			continue
		}
		for _, out := range meta.Output {
			shared[out] = struct{}{}
		}
	}
	return shared
}

// RemoveFile purges one source file from the generation.
func (s *Store) RemoveFile(module, rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFileLocked(module, rel)
}

func (s *Store) removeFileLocked(module, rel string) {
	if m, ok := s.inputPaths[module]; ok {
		delete(m.Paths, rel)
		delete(m.ExternalDependencies, rel)
		for _, bucket := range m.Artifacts {
			delete(bucket, rel)
		}
	}
	if set, ok := s.filesWithErrors[module]; ok {
		delete(set, rel)
	}
	key := JoinModulePath(module, rel)
	delete(s.dependencies, key)
	delete(s.cachedMinified, key)
}

// FilePaths returns the sorted relative paths recorded for the module.
func (s *Store) FilePaths(module string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.inputPaths[module]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(m.Paths))
}
