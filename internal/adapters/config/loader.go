// Package config provides the configuration loader for incr.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Override keys. Each can be set through the environment as INCR_<KEY> with dashes as underscores.
const (
	KeyCache       = "cache"
	KeyOutput      = "output"
	KeyLogs        = "logs"
	KeyBuilderHash = "builder-hash"
	KeyForce       = "force"
	KeyCompress    = "compress"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML project file with environment overrides.
type Loader struct {
	Logger ports.Logger
	v      *viper.Viper
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	v := viper.New()
	v.SetEnvPrefix(domain.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Loader{Logger: logger, v: v}
}

// Load finds the project file starting at cwd and returns the resolved configuration.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	configPath, err := findProjectfile(cwd)
	if err != nil {
		return nil, err
	}

	var pf Projectfile
	if err := readAndUnmarshalYAML(configPath, &pf); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	root := resolvePath(filepath.Dir(configPath), pf.Root, "")
	l.v.SetDefault(KeyCache, resolvePath(root, pf.Cache, domain.DefaultCacheDirName))
	l.v.SetDefault(KeyOutput, resolvePath(root, pf.Output, domain.DefaultOutputDirName))
	l.v.SetDefault(KeyLogs, resolvePath(root, pf.Logs, domain.DefaultLogDirName))
	l.v.SetDefault(KeyBuilderHash, pf.BuilderHash)
	l.v.SetDefault(KeyForce, pf.ForceRebuild)
	l.v.SetDefault(KeyCompress, pf.Compress)

	cfg := &domain.Config{
		Root:                   root,
		CacheDir:               resolvePath(root, l.v.GetString(KeyCache), domain.DefaultCacheDirName),
		OutputDir:              resolvePath(root, l.v.GetString(KeyOutput), domain.DefaultOutputDirName),
		LogDir:                 resolvePath(root, l.v.GetString(KeyLogs), domain.DefaultLogDirName),
		BuilderHash:            l.v.GetString(KeyBuilderHash),
		TemplatesProcessorHash: pf.TemplatesProcessorHash,
		ForceRebuild:           l.v.GetBool(KeyForce),
		Compress:               l.v.GetBool(KeyCompress),
		React:                  pf.React,
		TscReport:              pf.TscReport,
		Flags:                  pf.Flags,
		IndependentFlags:       pf.IndependentFlags,
		Preserved:              pf.Preserved,
		Themes:                 pf.Themes,
		Modules:                pf.Modules,
	}
	if pf.Compiled != "" {
		cfg.CompiledDir = resolvePath(root, pf.Compiled, "")
	}
	if cfg.Flags == nil {
		cfg.Flags = make(map[string]any)
	}
	if cfg.IndependentFlags == nil {
		cfg.IndependentFlags = domain.DefaultIndependentFlags()
	}
	if cfg.Preserved == nil {
		cfg.Preserved = domain.DefaultPreserved()
	}

	rules, err := resolveDropRules(pf.DropRules)
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	cfg.DropRules = rules

	if err := l.validateModules(cfg); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	if err := cfg.ValidateBuildDirs(); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	return cfg, nil
}

func (l *Loader) validateModules(cfg *domain.Config) error {
	seen := make(map[string]struct{}, len(cfg.Modules))
	for i := range cfg.Modules {
		m := &cfg.Modules[i]
		if m.Name == "" {
			return zerr.With(domain.ErrMissingModuleName, "index", i)
		}
		if strings.ContainsAny(m.Name, `/\`) {
			return zerr.With(domain.ErrInvalidModuleName, "module", m.Name)
		}
		if _, dup := seen[m.Name]; dup {
			return zerr.With(domain.ErrDuplicateModuleName, "module", m.Name)
		}
		seen[m.Name] = struct{}{}

		if _, err := os.Stat(cfg.ModuleRoot(*m)); err != nil {
			l.Logger.Warn("module " + m.Name + " has no source directory at " + cfg.ModuleRoot(*m))
		}
	}
	return nil
}

func resolveDropRules(rules []domain.DropRule) ([]domain.DropRule, error) {
	if rules == nil {
		return domain.DefaultDropRules(), nil
	}
	out := make([]domain.DropRule, 0, len(rules))
	for _, r := range rules {
		kind, ok := domain.ParseDropKind(r.Name)
		if !ok {
			return nil, zerr.With(domain.ErrUnknownDropKind, "kind", r.Name)
		}
		out = append(out, domain.DropRule{
			Prefix: domain.StripLeadingSlash(domain.NormalizePath(r.Prefix)),
			Kind:   kind,
			Name:   kind.String(),
		})
	}
	return out, nil
}

// findProjectfile walks from cwd up to the file system root looking for the project file.
func findProjectfile(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

func resolvePath(base, configured, fallback string) string {
	if configured == "" {
		configured = fallback
	}
	if configured == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured)
	}
	return filepath.Clean(filepath.Join(base, configured))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is found by walking up from the working directory
	data, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if err := yaml.Unmarshal(data, target); err != nil {
		return zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
