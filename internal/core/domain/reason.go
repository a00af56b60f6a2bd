package domain

import "fmt"

// Scope is the granularity at which an invalidation happened.
type Scope string

const (
	// ScopeProject invalidates every module.
	ScopeProject Scope = "project"
	// ScopeModule invalidates one module.
	ScopeModule Scope = "module"
	// ScopeFile invalidates one file.
	ScopeFile Scope = "file"
)

// Reason is a human-readable record of one invalidation decision.
type Reason struct {
	Scope   Scope  `json:"scope"`
	Module  string `json:"module,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// String formats the reason as a single log line.
func (r Reason) String() string {
	switch {
	case r.Path != "":
		return fmt.Sprintf("%s %s: %s", r.Scope, r.Path, r.Message)
	case r.Module != "":
		return fmt.Sprintf("%s %s: %s", r.Scope, r.Module, r.Message)
	default:
		return fmt.Sprintf("%s: %s", r.Scope, r.Message)
	}
}

// CheckResult is the log artifact written at the end of a build.
type CheckResult struct {
	StartBuildTime  int64    `json:"startBuildTime"`
	CacheDropped    bool     `json:"cacheDropped"`
	RebuiltModules  []string `json:"rebuiltModules,omitempty"`
	RemovedModules  []string `json:"removedModules,omitempty"`
	DroppedFamilies []string `json:"droppedFamilies,omitempty"`
	Reasons         []Reason `json:"reasons"`
}
