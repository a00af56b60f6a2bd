package domain

import "path/filepath"

const (
	// ProjectFileName is the name of the project configuration file.
	ProjectFileName = "incr.yaml"

	// DefaultCacheDirName is the cache directory used when the project file does not name one.
	DefaultCacheDirName = ".incr"

	// DefaultOutputDirName is the output directory used when the project file does not name one.
	DefaultOutputDirName = "build"

	// DefaultLogDirName is the log directory used when the project file does not name one.
	DefaultLogDirName = ".incr-logs"

	// EnvPrefix prefixes the environment variables that override the project file.
	EnvPrefix = "INCR"

	// ModuleCacheDirName is the per-module directory holding that module's store documents.
	ModuleCacheDirName = ".cache"

	// LockFilesDirName is the directory holding advisory lock files.
	LockFilesDirName = "lock-files"

	// BuilderLockFileName marks a build in progress. It survives a crashed run.
	BuilderLockFileName = "builder.lockfile"

	// BuilderInfoFile holds the builder hash, start time and templates processor hash.
	BuilderInfoFile = "builder-info.json"

	// RunningParametersFile holds the configuration fingerprint of the previous run.
	RunningParametersFile = "last_build_gulp_config.json"

	// InputPathsFile is the per-module input path metadata document.
	InputPathsFile = "input-paths.json"

	// DependenciesFile is the per-module slice of the dependency graph.
	DependenciesFile = "dependencies.json"

	// ThemesMetaFile holds theme metadata.
	ThemesMetaFile = "themesMeta.json"

	// RegionNodesFile holds per-module region nodes.
	RegionNodesFile = "region-nodes.json"

	// FailedTypescriptModulesFile holds the modules with fatal type-compilation errors.
	FailedTypescriptModulesFile = "failed-typescript-modules.json"

	// CachePathFile records the last used cache and log directories.
	CachePathFile = "cache-path.json"

	// ExtraConfigFile holds react mode and typescript report settings.
	ExtraConfigFile = "builder-extra-config.json"

	// CachedMinifiedFile holds content hashes of already minified sources.
	CachedMinifiedFile = "cached-minified.json"

	// ModulesStatsFile holds per-module statistics.
	ModulesStatsFile = "modules-stats.json"

	// CheckResultFile is the log artifact listing every invalidation reason of a build.
	CheckResultFile = "cache-check-result.json"

	// GarbageFile is the log artifact listing every path removed as garbage.
	GarbageFile = "garbage.json"

	// OutputDescriptionFile is expected in every module output directory after a successful build.
	OutputDescriptionFile = "contents.json"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultPreserved lists the cache entries kept when the whole cache is wiped.
func DefaultPreserved() []string {
	return []string{
		BuilderLockFileName,
		"temp-modules",
		"typescript-cache",
		LockFilesDirName,
		ExtraConfigFile,
		"tailwind-cache",
	}
}

// DefaultIndependentFlags lists the build flags whose change never invalidates the whole cache.
func DefaultIndependentFlags() []string {
	return []string{
		"version",
		"modules",
		"logs",
		"cache",
		"output",
		"watcher",
		"log-level",
		"lockfile",
	}
}

// ModuleCacheDir returns the directory that holds the store documents of a module.
func ModuleCacheDir(cacheDir, module string) string {
	return filepath.Join(cacheDir, module, ModuleCacheDirName)
}

// LockFilesDir returns the directory holding advisory lock files.
func LockFilesDir(cacheDir string) string {
	return filepath.Join(cacheDir, LockFilesDirName)
}

// BuilderLockFile returns the path of the build-in-progress marker.
func BuilderLockFile(cacheDir string) string {
	return filepath.Join(cacheDir, BuilderLockFileName)
}
