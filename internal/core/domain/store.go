package domain

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"
)

// UnknownBuilderHash marks a generation that carries no usable previous cache.
const UnknownBuilderHash = "unknown"

// FileMeta is the cached record of one source file.
type FileMeta struct {
	Hash   string   `json:"hash"`
	Output []string `json:"output"`
}

// ModuleInputs is the cached record of one module.
type ModuleInputs struct {
	Hash                 string                                `json:"hash"`
	Output               []string                              `json:"output"`
	Paths                map[string]*FileMeta                  `json:"paths"`
	ExternalDependencies map[string][]string                   `json:"externalDependencies"`
	Artifacts            map[string]map[string]json.RawMessage `json:"artifacts,omitempty"`
}

func newModuleInputs() *ModuleInputs {
	return &ModuleInputs{
		Output:               []string{},
		Paths:                make(map[string]*FileMeta),
		ExternalDependencies: make(map[string][]string),
	}
}

func (m *ModuleInputs) clone() ModuleInputs {
	out := ModuleInputs{
		Hash:                 m.Hash,
		Output:               slices.Clone(m.Output),
		Paths:                make(map[string]*FileMeta, len(m.Paths)),
		ExternalDependencies: make(map[string][]string, len(m.ExternalDependencies)),
	}
	for rel, meta := range m.Paths {
		out.Paths[rel] = &FileMeta{Hash: meta.Hash, Output: slices.Clone(meta.Output)}
	}
	for rel, deps := range m.ExternalDependencies {
		out.ExternalDependencies[rel] = slices.Clone(deps)
	}
	if len(m.Artifacts) > 0 {
		out.Artifacts = make(map[string]map[string]json.RawMessage, len(m.Artifacts))
		for kind, bucket := range m.Artifacts {
			out.Artifacts[kind] = maps.Clone(bucket)
		}
	}
	return out
}

// FallbackList holds the css variables fallback data.
type FallbackList struct {
	VariablesMap map[string]string `json:"variablesMap"`
	Hashes       map[string]string `json:"hashes"`
}

// ThemesMeta holds theme metadata.
type ThemesMeta struct {
	CSSVariablesOptions map[string]any      `json:"cssVariablesOptions,omitempty"`
	Themes              map[string][]string `json:"themes"`
	ThemesMap           map[string]string   `json:"themesMap"`
	FallbackList        FallbackList        `json:"fallbackList"`
	MissingThemes       map[string]string   `json:"missingThemes"`
}

// NewThemesMeta returns empty theme metadata.
func NewThemesMeta() ThemesMeta {
	return ThemesMeta{
		Themes:    make(map[string][]string),
		ThemesMap: make(map[string]string),
		FallbackList: FallbackList{
			VariablesMap: make(map[string]string),
			Hashes:       make(map[string]string),
		},
		MissingThemes: make(map[string]string),
	}
}

func (t ThemesMeta) clone() ThemesMeta {
	out := ThemesMeta{
		CSSVariablesOptions: maps.Clone(t.CSSVariablesOptions),
		Themes:              make(map[string][]string, len(t.Themes)),
		ThemesMap:           maps.Clone(t.ThemesMap),
		FallbackList: FallbackList{
			VariablesMap: maps.Clone(t.FallbackList.VariablesMap),
			Hashes:       maps.Clone(t.FallbackList.Hashes),
		},
		MissingThemes: maps.Clone(t.MissingThemes),
	}
	for name, parts := range t.Themes {
		out.Themes[name] = slices.Clone(parts)
	}
	return out
}

// ThemeNames returns the sorted theme names.
func (t ThemesMeta) ThemeNames() []string {
	return slices.Sorted(maps.Keys(t.Themes))
}

// RegionNodes is keyed by module, node name and region.
type RegionNodes map[string]map[string]map[string]map[string]string

// ModuleStats is the per-module summary of a build.
type ModuleStats struct {
	Files   int `json:"files"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// ExtraConfig holds the auxiliary settings consulted by invalidation.
type ExtraConfig struct {
	React              bool     `json:"react"`
	TscReport          bool     `json:"tscReport"`
	TscFilesWithErrors []string `json:"tscFilesWithErrors"`
}

// CachePaths records the directories a generation was written to.
type CachePaths struct {
	Cache string `json:"cache"`
	Logs  string `json:"logs"`
}

// Store is the snapshot of one build generation.
//
// Scalar fields are written only while the generation is being constructed. Map state is only
// reachable through methods and is safe for concurrent use.
type Store struct {
	RunningParameters      RunningParameters
	HashOfBuilder          string
	StartBuildTime         int64
	TemplatesProcessorHash string
	HasCriticalErrors      bool
	Extra                  ExtraConfig
	CachePaths             CachePaths

	mu                      sync.RWMutex
	inputPaths              map[string]*ModuleInputs
	dependencies            map[string][]string
	cachedMinified          map[string]string
	filesWithErrors         map[string]map[string]struct{}
	failedTypescriptModules map[string]struct{}
	regionNodes             RegionNodes
	themesMeta              ThemesMeta
	modulesStats            map[string]ModuleStats
}

// NewStore returns an empty generation with no usable previous cache.
func NewStore() *Store {
	return &Store{
		HashOfBuilder:           UnknownBuilderHash,
		inputPaths:              make(map[string]*ModuleInputs),
		dependencies:            make(map[string][]string),
		cachedMinified:          make(map[string]string),
		filesWithErrors:         make(map[string]map[string]struct{}),
		failedTypescriptModules: make(map[string]struct{}),
		regionNodes:             make(RegionNodes),
		themesMeta:              NewThemesMeta(),
		modulesStats:            make(map[string]ModuleStats),
	}
}

// IsFirstBuild reports whether the generation never completed a build.
func (s *Store) IsFirstBuild() bool {
	return s.StartBuildTime == 0
}

func (s *Store) module(name string) *ModuleInputs {
	m, ok := s.inputPaths[name]
	if !ok {
		m = newModuleInputs()
		s.inputPaths[name] = m
	}
	return m
}

// Modules returns the sorted names of modules with input path records.
func (s *Store) Modules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.inputPaths))
}

// HasModule reports whether the module has an input path record.
func (s *Store) HasModule(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inputPaths[name]
	return ok
}

// ModuleInputs returns a deep copy of the module record.
func (s *Store) ModuleInputs(name string) (ModuleInputs, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.inputPaths[name]
	if !ok {
		return ModuleInputs{}, false
	}
	return m.clone(), true
}

// SetModuleInputs replaces the module record.
func (s *Store) SetModuleInputs(name string, inputs ModuleInputs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := inputs.clone()
	if m.Paths == nil {
		m.Paths = make(map[string]*FileMeta)
	}
	if m.ExternalDependencies == nil {
		m.ExternalDependencies = make(map[string][]string)
	}
	if m.Output == nil {
		m.Output = []string{}
	}
	s.inputPaths[name] = &m
}

// SetModuleHash records the module-level hash.
func (s *Store) SetModuleHash(name, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.module(name).Hash = hash
}

// DeleteModule purges every record of the module from the generation.
func (s *Store) DeleteModule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inputPaths, name)
	delete(s.filesWithErrors, name)
	delete(s.failedTypescriptModules, name)
	delete(s.regionNodes, name)
	delete(s.modulesStats, name)
	prefix := name + "/"
	for key := range s.dependencies {
		if strings.HasPrefix(key, prefix) {
			delete(s.dependencies, key)
		}
	}
	for key := range s.cachedMinified {
		if strings.HasPrefix(key, prefix) {
			delete(s.cachedMinified, key)
		}
	}
}

// FileMeta returns a copy of the record of a file within a module.
func (s *Store) FileMeta(module, rel string) (FileMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.inputPaths[module]
	if !ok {
		return FileMeta{}, false
	}
	meta, ok := m.Paths[rel]
	if !ok {
		return FileMeta{}, false
	}
	return FileMeta{Hash: meta.Hash, Output: slices.Clone(meta.Output)}, true
}

// SetFileMeta replaces the record of a file.
func (s *Store) SetFileMeta(module, rel string, meta FileMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(meta.Output)
	if out == nil {
		out = []string{}
	}
	s.module(module).Paths[rel] = &FileMeta{Hash: meta.Hash, Output: out}
}

// EnsureFileMeta seeds a default record for the file unless one exists.
func (s *Store) EnsureFileMeta(module, rel, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.module(module)
	if _, ok := m.Paths[rel]; ok {
		return
	}
	m.Paths[rel] = &FileMeta{Hash: hash, Output: []string{}}
}

// AddFileOutput records that the file produced output.
func (s *Store) AddFileOutput(module, rel, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.module(module)
	meta, ok := m.Paths[rel]
	if !ok {
		meta = &FileMeta{Output: []string{}}
		m.Paths[rel] = meta
	}
	if !slices.Contains(meta.Output, output) {
		meta.Output = append(meta.Output, output)
	}
}

// AddModuleOutput records an auxiliary output that belongs to the module as a whole.
func (s *Store) AddModuleOutput(module, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.module(module)
	if !slices.Contains(m.Output, output) {
		m.Output = append(m.Output, output)
	}
}

// AddExternalDependency records that a file depends on another module.
func (s *Store) AddExternalDependency(module, rel, dependency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.module(module)
	if !slices.Contains(m.ExternalDependencies[rel], dependency) {
		m.ExternalDependencies[rel] = append(m.ExternalDependencies[rel], dependency)
	}
}

// ExternalDependencies returns the modules a file depends on.
func (s *Store) ExternalDependencies(module, rel string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.inputPaths[module]
	if !ok {
		return nil
	}
	return slices.Clone(m.ExternalDependencies[rel])
}

// Artifact returns a cached per-file artifact of the given kind.
func (s *Store) Artifact(module, kind, rel string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.inputPaths[module]
	if !ok {
		return nil, false
	}
	data, ok := m.Artifacts[kind][rel]
	return data, ok
}

// ArtifactKinds returns the sorted artifact kinds recorded for the module.
func (s *Store) ArtifactKinds(module string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.inputPaths[module]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(m.Artifacts))
}

// SetArtifact stores a per-file artifact of the given kind.
func (s *Store) SetArtifact(module, kind, rel string, data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.module(module)
	if m.Artifacts == nil {
		m.Artifacts = make(map[string]map[string]json.RawMessage)
	}
	bucket, ok := m.Artifacts[kind]
	if !ok {
		bucket = make(map[string]json.RawMessage)
		m.Artifacts[kind] = bucket
	}
	bucket[rel] = data
}

// Dependencies returns the direct dependencies of a project-relative path.
func (s *Store) Dependencies(p string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deps, ok := s.dependencies[p]
	return slices.Clone(deps), ok
}

// AddDependencies appends edges from p, keeping the list ordered and unique.
func (s *Store) AddDependencies(p string, deps ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.dependencies[p]
	if !ok {
		current = []string{}
	}
	for _, d := range deps {
		if !slices.Contains(current, d) {
			current = append(current, d)
		}
	}
	s.dependencies[p] = current
}

// DependencyGraph returns a copy of every dependency edge.
func (s *Store) DependencyGraph() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.dependencies))
	for k, v := range s.dependencies {
		out[k] = slices.Clone(v)
	}
	return out
}

// ModuleDependencyGraph returns the edges whose source lives in the module.
func (s *Store) ModuleDependencyGraph(module string) map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := module + "/"
	out := make(map[string][]string)
	for k, v := range s.dependencies {
		if strings.HasPrefix(k, prefix) {
			out[k] = slices.Clone(v)
		}
	}
	return out
}

// MarkFailed records that a file failed to process.
func (s *Store) MarkFailed(module, rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.filesWithErrors[module]
	if !ok {
		set = make(map[string]struct{})
		s.filesWithErrors[module] = set
	}
	set[rel] = struct{}{}
}

// IsFailed reports whether a file failed to process in this generation.
func (s *Store) IsFailed(module, rel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.filesWithErrors[module][rel]
	return ok
}

// FailedFiles returns the sorted failed files of every module.
func (s *Store) FailedFiles() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.filesWithErrors))
	for module, set := range s.filesWithErrors {
		out[module] = slices.Sorted(maps.Keys(set))
	}
	return out
}

// MarkTypescriptFailed records a fatal type-compilation error in the module.
func (s *Store) MarkTypescriptFailed(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedTypescriptModules[module] = struct{}{}
}

// IsTypescriptFailed reports whether the module had a fatal type-compilation error.
func (s *Store) IsTypescriptFailed(module string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.failedTypescriptModules[module]
	return ok
}

// FailedTypescriptModules returns the sorted modules with fatal type-compilation errors.
func (s *Store) FailedTypescriptModules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.failedTypescriptModules))
}

// CachedMinified returns the content hash a path was last minified with.
func (s *Store) CachedMinified(p string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.cachedMinified[p]
	return h, ok
}

// SetCachedMinified records the content hash a path was minified with.
func (s *Store) SetCachedMinified(p, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedMinified[p] = hash
}

// CachedMinifiedSnapshot returns a copy of every minified hash.
func (s *Store) CachedMinifiedSnapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.cachedMinified)
}

// ThemesMeta returns a copy of the theme metadata.
func (s *Store) ThemesMeta() ThemesMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.themesMeta.clone()
}

// SetThemesMeta replaces the theme metadata.
func (s *Store) SetThemesMeta(meta ThemesMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta = meta.clone()
	if meta.Themes == nil {
		meta.Themes = make(map[string][]string)
	}
	if meta.ThemesMap == nil {
		meta.ThemesMap = make(map[string]string)
	}
	s.themesMeta = meta
}

// AddThemePart registers a style part as belonging to a theme.
func (s *Store) AddThemePart(theme, part string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.themesMeta.Themes[theme], part) {
		s.themesMeta.Themes[theme] = append(s.themesMeta.Themes[theme], part)
	}
	s.themesMeta.ThemesMap[part] = theme
}

// RegionNodes returns a copy of the region nodes.
func (s *Store) RegionNodes() RegionNodes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(RegionNodes, len(s.regionNodes))
	for module, nodes := range s.regionNodes {
		out[module] = make(map[string]map[string]map[string]string, len(nodes))
		for node, regions := range nodes {
			out[module][node] = make(map[string]map[string]string, len(regions))
			for region, values := range regions {
				out[module][node][region] = maps.Clone(values)
			}
		}
	}
	return out
}

// SetRegionNodes replaces the region nodes.
func (s *Store) SetRegionNodes(nodes RegionNodes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nodes == nil {
		nodes = make(RegionNodes)
	}
	s.regionNodes = nodes
}

// SetRegionNode stores one value of the region nodes.
func (s *Store) SetRegionNode(module, node, region, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, ok := s.regionNodes[module]
	if !ok {
		nodes = make(map[string]map[string]map[string]string)
		s.regionNodes[module] = nodes
	}
	regions, ok := nodes[node]
	if !ok {
		regions = make(map[string]map[string]string)
		nodes[node] = regions
	}
	values, ok := regions[region]
	if !ok {
		values = make(map[string]string)
		regions[region] = values
	}
	values[key] = value
}

// ModulesStats returns a copy of the module statistics.
func (s *Store) ModulesStats() map[string]ModuleStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.modulesStats)
}

// SetModuleStats replaces the statistics of one module.
func (s *Store) SetModuleStats(module string, stats ModuleStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modulesStats[module] = stats
}
