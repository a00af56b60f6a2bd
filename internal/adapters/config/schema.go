package config

import "go.trai.ch/incr/internal/core/domain"

// Projectfile represents the structure of the incr.yaml configuration file.
type Projectfile struct {
	Root                   string                `yaml:"root"`
	Cache                  string                `yaml:"cache"`
	Output                 string                `yaml:"output"`
	Logs                   string                `yaml:"logs"`
	Compiled               string                `yaml:"compiled"`
	BuilderHash            string                `yaml:"builderHash"`
	TemplatesProcessorHash string                `yaml:"templatesProcessorHash"`
	ForceRebuild           bool                  `yaml:"forceRebuild"`
	Compress               bool                  `yaml:"compress"`
	React                  bool                  `yaml:"react"`
	TscReport              bool                  `yaml:"tscReport"`
	Flags                  map[string]any        `yaml:"flags"`
	IndependentFlags       []string              `yaml:"independentFlags"`
	Preserved              []string              `yaml:"preserved"`
	DropRules              []domain.DropRule     `yaml:"dropRules"`
	Themes                 map[string][]string   `yaml:"themes"`
	Modules                []domain.ModuleParams `yaml:"modules"`
}
