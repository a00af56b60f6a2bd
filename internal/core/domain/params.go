package domain

import "encoding/json"

// RunningParameters is the configuration fingerprint of one build.
type RunningParameters struct {
	Flags   map[string]any `json:"flags,omitempty"`
	Modules []ModuleParams `json:"modules,omitempty"`
}

// Module returns the parameters of the named module.
func (p RunningParameters) Module(name string) (ModuleParams, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleParams{}, false
}

// Flag returns a structural flag and whether it is set.
func (p RunningParameters) Flag(name string) (any, bool) {
	v, ok := p.Flags[name]
	return v, ok
}

// ModuleParams describes one module of the project.
type ModuleParams struct {
	Name          string         `json:"name" yaml:"name"`
	Path          string         `json:"path" yaml:"path"`
	Rebuild       bool           `json:"rebuild,omitempty" yaml:"rebuild"`
	ChangedFiles  []string       `json:"changedFiles,omitempty" yaml:"changedFiles"`
	DeletedFiles  []string       `json:"deletedFiles,omitempty" yaml:"deletedFiles"`
	Depends       []string       `json:"depends,omitempty" yaml:"depends"`
	Description   string         `json:"description,omitempty" yaml:"description"`
	Responsible   string         `json:"responsible,omitempty" yaml:"responsible"`
	Hash          string         `json:"hash,omitempty" yaml:"hash"`
	Service       bool           `json:"service,omitempty" yaml:"service"`
	FileHashCheck *bool          `json:"fileHashCheck,omitempty" yaml:"fileHashCheck"`
	Flags         map[string]any `json:"flags,omitempty" yaml:"flags"`
}

// HashCheckEnabled reports whether unchanged files of the module may be reused.
func (m ModuleParams) HashCheckEnabled() bool {
	return m.FileHashCheck == nil || *m.FileHashCheck
}

// Fingerprint returns m without the module-local fields that never affect output.
func (m ModuleParams) Fingerprint() ModuleParams {
	return ModuleParams{
		Name:          m.Name,
		FileHashCheck: m.FileHashCheck,
		Flags:         m.Flags,
	}
}

// SameJSON reports whether a and b encode to identical JSON. Maps are encoded with sorted keys,
// so values decoded from JSON compare equal to the YAML values they were saved from.
func SameJSON(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}
