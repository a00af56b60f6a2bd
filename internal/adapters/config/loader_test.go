package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/config"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), domain.FilePerm))
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func TestLoader_Load_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	createFile(t, root, domain.ProjectFileName, `
modules:
  - name: UI
  - name: Controls
    path: src/Controls
    fileHashCheck: false
    flags:
      minimize: true
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "UI"), domain.DirPerm))

	cfg, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, domain.DefaultCacheDirName), cfg.CacheDir)
	assert.Equal(t, filepath.Join(root, domain.DefaultOutputDirName), cfg.OutputDir)
	assert.Equal(t, filepath.Join(root, domain.DefaultLogDirName), cfg.LogDir)
	assert.Equal(t, domain.DefaultIndependentFlags(), cfg.IndependentFlags)
	assert.Equal(t, domain.DefaultPreserved(), cfg.Preserved)
	assert.Equal(t, domain.DefaultDropRules(), cfg.DropRules)
	assert.NotNil(t, cfg.Flags)
	assert.Empty(t, cfg.CompiledDir)

	require.Len(t, cfg.Modules, 2)
	assert.Equal(t, []string{"UI", "Controls"}, cfg.ModuleNames())
	assert.True(t, cfg.Modules[0].HashCheckEnabled())
	assert.False(t, cfg.Modules[1].HashCheckEnabled())
	assert.Equal(t, filepath.Join(root, "src", "Controls"), cfg.ModuleRoot(cfg.Modules[1]))
	assert.Equal(t, true, cfg.Modules[1].Flags["minimize"])
}

func TestLoader_Load_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	createFile(t, root, domain.ProjectFileName, `
cache: var/cache
output: /abs/out
compiled: ../prebuilt
builderHash: abc
compress: true
independentFlags: [version]
preserved: [builder.lockfile]
dropRules:
  - prefix: /Tmpl/Engine
    kind: markup
themes:
  default: [Controls/default.less]
flags:
  localization: true
`)
	nested := filepath.Join(root, "UI", "deep")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	cfg, err := newLoader(t).Load(nested)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "var", "cache"), cfg.CacheDir)
	assert.Equal(t, filepath.Clean("/abs/out"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(filepath.Dir(root), "prebuilt"), cfg.CompiledDir)
	assert.Equal(t, "abc", cfg.BuilderHash)
	assert.True(t, cfg.Compress)
	assert.Equal(t, []string{"version"}, cfg.IndependentFlags)
	assert.Equal(t, []string{"builder.lockfile"}, cfg.Preserved)
	assert.Equal(t, []domain.DropRule{{Prefix: "Tmpl/Engine", Kind: domain.DropMarkup, Name: "markup"}}, cfg.DropRules)
	assert.Equal(t, map[string][]string{"default": {"Controls/default.less"}}, cfg.Themes)
	assert.Equal(t, true, cfg.Flags["localization"])
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ProjectFileName, "cache: from-file\n")
	t.Setenv("INCR_CACHE", "from-env")
	t.Setenv("INCR_BUILDER_HASH", "def")
	t.Setenv("INCR_FORCE", "true")

	cfg, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "from-env"), cfg.CacheDir)
	assert.Equal(t, "def", cfg.BuilderHash)
	assert.True(t, cfg.ForceRebuild)
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "modules: [",
			wantErr: "failed to parse project file",
		},
		{
			name:    "missing module name",
			content: "modules:\n  - path: UI\n",
			wantErr: "module name is required",
		},
		{
			name:    "nested module name",
			content: "modules:\n  - name: UI/Base\n",
			wantErr: "module name must be a single path segment",
		},
		{
			name:    "duplicate module",
			content: "modules:\n  - name: UI\n  - name: UI\n",
			wantErr: "duplicate module name",
		},
		{
			name:    "output is the root",
			content: "output: .\nmodules:\n  - name: UI\n",
			wantErr: "build directory overlaps the project sources",
		},
		{
			name:    "cache holds a module",
			content: "cache: src\nmodules:\n  - name: UI\n    path: src/UI\n",
			wantErr: "build directory overlaps the project sources",
		},
		{
			name:    "logs inside a module root",
			content: "logs: UI\nmodules:\n  - name: UI\n",
			wantErr: "build directory overlaps the project sources",
		},
		{
			name:    "unknown drop kind",
			content: "dropRules:\n  - prefix: A\n    kind: fonts\n",
			wantErr: "unknown drop kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			createFile(t, root, domain.ProjectFileName, tt.content)

			_, err := newLoader(t).Load(root)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoader_Load_NotFound(t *testing.T) {
	t.Parallel()

	_, err := newLoader(t).Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not find project file")
}
