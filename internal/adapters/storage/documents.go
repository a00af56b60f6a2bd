package storage

import "go.trai.ch/incr/internal/core/domain"

// builderInfo is the layout of builder-info.json.
type builderInfo struct {
	HashOfBuilder          string `json:"hashOfBuilder"`
	StartBuildTime         int64  `json:"startBuildTime"`
	TemplatesProcessorHash string `json:"templatesProcessorHash"`
	HasCriticalErrors      bool   `json:"hasCriticalErrors,omitempty"`
}

// moduleInputs is the layout of a module's input-paths.json. The failed files of the module are
// kept next to its input paths so both are written under the same lock.
type moduleInputs struct {
	domain.ModuleInputs
	FilesWithErrors []string `json:"filesWithErrors,omitempty"`
}
