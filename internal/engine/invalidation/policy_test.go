package invalidation_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/fs"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.trai.ch/incr/internal/engine/invalidation"
	"go.uber.org/mock/gomock"
)

type wholeCacheFixture struct {
	cfg     *domain.Config
	last    *domain.Store
	current *domain.Store
}

// newWholeCacheFixture returns a project whose previous build left a healthy cache.
func newWholeCacheFixture(t *testing.T) *wholeCacheFixture {
	t.Helper()
	root := t.TempDir()
	cfg := &domain.Config{
		Root:             root,
		CacheDir:         filepath.Join(root, ".incr"),
		OutputDir:        filepath.Join(root, "build"),
		IndependentFlags: domain.DefaultIndependentFlags(),
		Flags:            map[string]any{"minimize": true, "logs": "/tmp/a"},
		Modules:          []domain.ModuleParams{{Name: "UI"}, {Name: "Controls"}},
	}
	for _, m := range cfg.Modules {
		dir := filepath.Join(cfg.OutputDir, m.Name)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, domain.OutputDescriptionFile), []byte("{}"), 0o600))
	}

	last := domain.NewStore()
	last.HashOfBuilder = "abc"
	last.StartBuildTime = 1700000000000
	last.RunningParameters = cfg.RunningParameters()
	last.CachePaths = domain.CachePaths{Cache: cfg.CacheDir}

	current := domain.NewStore()
	current.HashOfBuilder = "abc"
	current.RunningParameters = cfg.RunningParameters()

	return &wholeCacheFixture{cfg: cfg, last: last, current: current}
}

func newPolicy(t *testing.T) *invalidation.Policy {
	t.Helper()
	hasher, err := fs.NewHasher(0)
	require.NoError(t, err)
	return invalidation.NewPolicy(fs.NewVerifier(), hasher)
}

func TestHasIncompatibleChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(t *testing.T, f *wholeCacheFixture)
		reason string
	}{
		{
			name:   "healthy cache",
			mutate: func(*testing.T, *wholeCacheFixture) {},
		},
		{
			name:   "force rebuild",
			mutate: func(_ *testing.T, f *wholeCacheFixture) { f.cfg.ForceRebuild = true },
			reason: "force rebuild requested",
		},
		{
			name: "force rebuild wins over later checks",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.cfg.ForceRebuild = true
				f.current.HashOfBuilder = "def"
			},
			reason: "force rebuild requested",
		},
		{
			name: "crashed previous build",
			mutate: func(t *testing.T, f *wholeCacheFixture) {
				require.NoError(t, os.MkdirAll(f.cfg.CacheDir, 0o750))
				require.NoError(t, os.WriteFile(domain.BuilderLockFile(f.cfg.CacheDir), nil, 0o600))
			},
			reason: "lockfile of an unfinished build found",
		},
		{
			name: "no previous cache",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.last = domain.NewStore()
			},
			reason: "no usable cache from a previous build",
		},
		{
			name:   "critical errors",
			mutate: func(_ *testing.T, f *wholeCacheFixture) { f.last.HasCriticalErrors = true },
			reason: "previous build finished with critical errors",
		},
		{
			name:   "builder upgrade",
			mutate: func(_ *testing.T, f *wholeCacheFixture) { f.current.HashOfBuilder = "def" },
			reason: "builder code changed",
		},
		{
			name: "structural flag changed",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.current.RunningParameters.Flags = map[string]any{"minimize": false, "logs": "/tmp/a"}
			},
			reason: `build flag "minimize" changed`,
		},
		{
			name: "structural flag added",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.current.RunningParameters.Flags = map[string]any{"minimize": true, "logs": "/tmp/a", "sourcemaps": true}
			},
			reason: `build flag "sourcemaps" changed`,
		},
		{
			name: "independent flag changed",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.current.RunningParameters.Flags = map[string]any{"minimize": true, "logs": "/tmp/b"}
			},
		},
		{
			name: "module list changed",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.current.RunningParameters.Modules = f.current.RunningParameters.Modules[:1]
			},
		},
		{
			name: "version string changed",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.last.RunningParameters.Flags = map[string]any{"minimize": true, "version": "1.0"}
				f.current.RunningParameters.Flags = map[string]any{"minimize": true, "version": "2.0"}
			},
		},
		{
			name: "version turned on",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.current.RunningParameters.Flags = map[string]any{"minimize": true, "logs": "/tmp/a", "version": "2.0"}
			},
			reason: "version flag turned on",
		},
		{
			name: "version turned off",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.last.RunningParameters.Flags = map[string]any{"minimize": true, "logs": "/tmp/a", "version": "2.0"}
			},
			reason: "version flag turned off",
		},
		{
			name: "output description missing",
			mutate: func(t *testing.T, f *wholeCacheFixture) {
				require.NoError(t, os.Remove(filepath.Join(f.cfg.OutputDir, "Controls", domain.OutputDescriptionFile)))
			},
			reason: "output description is missing",
		},
		{
			name: "new module has no output description yet",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.cfg.Modules = append(f.cfg.Modules, domain.ModuleParams{Name: "Fresh"})
			},
		},
		{
			name: "output root missing",
			mutate: func(t *testing.T, f *wholeCacheFixture) {
				require.NoError(t, os.RemoveAll(f.cfg.OutputDir))
				f.last.RunningParameters.Modules = nil
			},
			reason: "output directory is missing",
		},
		{
			name: "cache relocated",
			mutate: func(_ *testing.T, f *wholeCacheFixture) {
				f.last.CachePaths.Cache = "/elsewhere/.incr"
			},
			reason: "cache directory moved from /elsewhere/.incr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newWholeCacheFixture(t)
			tt.mutate(t, f)

			reason, fired := newPolicy(t).HasIncompatibleChanges(context.Background(), f.last, f.current, f.cfg)
			if tt.reason == "" {
				assert.False(t, fired, "unexpected reason: %s", reason.Message)
				return
			}
			require.True(t, fired)
			assert.Equal(t, domain.ScopeProject, reason.Scope)
			assert.Contains(t, reason.Message, tt.reason)
		})
	}
}

func TestHasIncompatibleChanges_ProbeFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	prober := mocks.NewMockFileProber(ctrl)
	prober.EXPECT().Exists(gomock.Any()).Return(false, errors.New("permission denied"))

	f := newWholeCacheFixture(t)
	reason, fired := invalidation.NewPolicy(prober, mocks.NewMockHasher(ctrl)).
		HasIncompatibleChanges(context.Background(), f.last, f.current, f.cfg)

	require.True(t, fired)
	assert.Contains(t, reason.Message, "permission denied")
}

func TestForceModuleRebuild(t *testing.T) {
	t.Parallel()

	off := false
	last := domain.RunningParameters{Modules: []domain.ModuleParams{
		{Name: "UI", Path: "ui", Responsible: "alice"},
		{Name: "Controls", Flags: map[string]any{"strict": true}},
		{Name: "Types"},
	}}

	t.Run("module-local fields are ignored", func(t *testing.T) {
		t.Parallel()
		current := domain.RunningParameters{Modules: []domain.ModuleParams{
			{
				Name: "UI", Path: "src/ui", Responsible: "bob", Description: "widgets",
				Rebuild: true, ChangedFiles: []string{"a.ts"}, DeletedFiles: []string{"b.ts"},
				Depends: []string{"Types"}, Hash: "h", Service: true,
			},
			{Name: "Controls", Flags: map[string]any{"strict": true}},
			{Name: "Types"},
		}}
		assert.Empty(t, invalidation.ForceModuleRebuild(last, current))
	})

	t.Run("only the changed module rebuilds", func(t *testing.T) {
		t.Parallel()
		current := domain.RunningParameters{Modules: []domain.ModuleParams{
			{Name: "UI", Path: "ui", Responsible: "carol"},
			{Name: "Controls", Flags: map[string]any{"strict": false}},
			{Name: "Types", FileHashCheck: &off},
			{Name: "Added", Flags: map[string]any{"strict": true}},
		}}
		assert.Equal(t, []string{"Controls", "Types"}, invalidation.ForceModuleRebuild(last, current))
	})
}

func TestLatches(t *testing.T) {
	t.Parallel()

	var l invalidation.Latches
	assert.Empty(t, l.Kinds())
	assert.False(t, l.IsSet(domain.DropLess))

	assert.True(t, l.Set(domain.DropLess))
	assert.False(t, l.Set(domain.DropLess))
	assert.True(t, l.Set(domain.DropMarkup))

	assert.True(t, l.IsSet(domain.DropLess))
	assert.False(t, l.IsSet(domain.DropMetatypes))
	assert.Equal(t, []domain.DropKind{domain.DropMarkup, domain.DropLess}, l.Kinds())
}
