package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/storage"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newRepository(t *testing.T) (*storage.Repository, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	return storage.NewRepository(mockLogger), mockLogger
}

func sampleStore() *domain.Store {
	s := domain.NewStore()
	s.HashOfBuilder = "abc"
	s.StartBuildTime = 1_700_000_000_000
	s.TemplatesProcessorHash = "tmpl-1"
	s.Extra = domain.ExtraConfig{React: true, TscReport: true, TscFilesWithErrors: []string{"UI/a.ts"}}
	s.RunningParameters = domain.RunningParameters{
		Flags:   map[string]any{"minimize": true},
		Modules: []domain.ModuleParams{{Name: "UI"}, {Name: "Controls"}},
	}

	s.SetFileMeta("UI", "a.less", domain.FileMeta{Hash: "h1", Output: []string{"UI/a.css", "UI/a.min.css"}})
	s.SetFileMeta("UI", "b.ts", domain.FileMeta{Hash: "h2", Output: []string{"UI/b.js"}})
	s.AddModuleOutput("UI", "UI/icons.svg")
	s.AddExternalDependency("UI", "b.ts", "Controls")
	s.SetArtifact("UI", "markup", "b.ts", []byte(`{"compiled":true}`))
	s.SetFileMeta("Controls", "button.less", domain.FileMeta{Hash: "h3", Output: []string{"Controls/button.css"}})

	s.AddDependencies("UI/a.less", "UI/b.less", "Controls/button.less")
	s.AddDependencies("Controls/button.less", "UI/a.less")

	s.MarkFailed("UI", "b.ts")
	s.MarkTypescriptFailed("UI")
	s.SetCachedMinified("UI/a.css", "m1")
	s.AddThemePart("default", "Controls/default.less")
	s.SetRegionNode("UI", "node", "ru", "key", "value")
	s.SetModuleStats("UI", domain.ModuleStats{Files: 2, Changed: 1, Failed: 1})
	return s
}

func TestRepository_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	logDir := filepath.Join(t.TempDir(), "logs")
	repo, _ := newRepository(t)
	ctx := context.Background()
	modules := []string{"UI", "Controls"}

	saved := sampleStore()
	require.NoError(t, repo.Save(ctx, saved, cacheDir, logDir, modules))

	assert.FileExists(t, filepath.Join(domain.ModuleCacheDir(cacheDir, "UI"), domain.InputPathsFile))
	assert.FileExists(t, filepath.Join(domain.ModuleCacheDir(cacheDir, "Controls"), domain.DependenciesFile))

	loaded := repo.Load(ctx, cacheDir, modules)

	assert.Equal(t, "abc", loaded.HashOfBuilder)
	assert.Equal(t, saved.StartBuildTime, loaded.StartBuildTime)
	assert.Equal(t, "tmpl-1", loaded.TemplatesProcessorHash)
	assert.Equal(t, saved.Extra, loaded.Extra)
	assert.Equal(t, domain.CachePaths{Cache: cacheDir, Logs: logDir}, loaded.CachePaths)
	assert.True(t, domain.SameJSON(saved.RunningParameters, loaded.RunningParameters))

	for _, m := range modules {
		want, ok := saved.ModuleInputs(m)
		require.True(t, ok)
		got, ok := loaded.ModuleInputs(m)
		require.True(t, ok, m)
		assert.True(t, domain.SameJSON(want, got), m)
	}
	assert.Equal(t, saved.DependencyGraph(), loaded.DependencyGraph())
	assert.Equal(t, saved.ThemesMeta(), loaded.ThemesMeta())
	assert.Equal(t, saved.FailedTypescriptModules(), loaded.FailedTypescriptModules())
	assert.Equal(t, saved.FailedFiles(), loaded.FailedFiles())
	assert.Equal(t, saved.CachedMinifiedSnapshot(), loaded.CachedMinifiedSnapshot())
	assert.Equal(t, saved.RegionNodes(), loaded.RegionNodes())
	assert.Equal(t, saved.ModulesStats(), loaded.ModulesStats())
}

func TestRepository_Load_Missing(t *testing.T) {
	t.Parallel()

	repo, _ := newRepository(t)
	store := repo.Load(context.Background(), t.TempDir(), []string{"UI"})

	assert.Equal(t, domain.UnknownBuilderHash, store.HashOfBuilder)
	assert.True(t, store.IsFirstBuild())
	assert.Empty(t, store.Modules())
}

func TestRepository_Load_CorruptBuilderInfo(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, domain.BuilderInfoFile), []byte("{"), 0o600))

	repo, mockLogger := newRepository(t)
	mockLogger.EXPECT().Warn(gomock.Any()).Times(1)

	store := repo.Load(context.Background(), cacheDir, nil)
	assert.Equal(t, domain.UnknownBuilderHash, store.HashOfBuilder)
}

func TestRepository_Load_CorruptOptionalDocuments(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	repo, mockLogger := newRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleStore(), cacheDir, cacheDir, []string{"UI", "Controls"}))

	// Break three independent documents.
	for _, name := range []string{domain.ThemesMetaFile, domain.RegionNodesFile, domain.CachedMinifiedFile} {
		require.NoError(t, os.WriteFile(filepath.Join(cacheDir, name), []byte("not json"), 0o600))
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(domain.ModuleCacheDir(cacheDir, "Controls"), domain.InputPathsFile), []byte("[]"), 0o600))
	mockLogger.EXPECT().Warn(gomock.Any()).Times(4)

	store := repo.Load(ctx, cacheDir, []string{"UI", "Controls"})

	assert.Equal(t, "abc", store.HashOfBuilder)
	assert.Empty(t, store.ThemesMeta().Themes)
	assert.Empty(t, store.RegionNodes())
	assert.Empty(t, store.CachedMinifiedSnapshot())
	assert.False(t, store.HasModule("Controls"))

	// Untouched documents are still loaded.
	meta, ok := store.FileMeta("UI", "a.less")
	require.True(t, ok)
	assert.Equal(t, "h1", meta.Hash)
	assert.Equal(t, []string{"UI"}, store.FailedTypescriptModules())
}

func TestRepository_Load_RemovedModules(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	repo, _ := newRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleStore(), cacheDir, cacheDir, []string{"UI", "Controls"}))

	// Controls is no longer configured but its records must be visible for cleanup.
	store := repo.Load(ctx, cacheDir, []string{"UI"})

	assert.True(t, store.HasModule("Controls"))
}

func TestRepository_Save_LocksEveryModule(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLocker := mocks.NewMockLocker(ctrl)
	cacheDir := t.TempDir()

	for _, m := range []string{"UI", "Controls"} {
		mockLocker.EXPECT().
			WithLock(gomock.Any(), domain.ModuleCacheDir(cacheDir, m), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, fn func() error) error { return fn() })
	}

	repo := storage.NewRepositoryWithLocker(mockLogger, mockLocker)
	require.NoError(t, repo.Save(context.Background(), sampleStore(), cacheDir, cacheDir, []string{"UI", "Controls"}))
}

func TestRepository_Save_PropagatesFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockLocker := mocks.NewMockLocker(ctrl)
	mockLocker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("lock held"))

	repo := storage.NewRepositoryWithLocker(mocks.NewMockLogger(ctrl), mockLocker)
	err := repo.Save(context.Background(), sampleStore(), t.TempDir(), t.TempDir(), []string{"UI"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "lock held")
}

func TestRepository_Save_UnwritableCache(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	repo, _ := newRepository(t)
	err := repo.Save(context.Background(), sampleStore(), filepath.Join(blocker, "cache"), base, []string{"UI"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to create store directory")
}
