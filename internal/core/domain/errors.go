package domain

import "go.trai.ch/zerr"

var (
	// ErrConfigNotFound is returned when the project file cannot be found.
	ErrConfigNotFound = zerr.New("could not find project file")

	// ErrConfigReadFailed is returned when the project file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read project file")

	// ErrConfigParseFailed is returned when the project file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse project file")

	// ErrMissingModuleName is returned when a module entry has no name.
	ErrMissingModuleName = zerr.New("module name is required")

	// ErrInvalidModuleName is returned when a module name contains a path separator.
	ErrInvalidModuleName = zerr.New("module name must be a single path segment")

	// ErrDuplicateModuleName is returned when two modules share a name.
	ErrDuplicateModuleName = zerr.New("duplicate module name")

	// ErrUnknownDropKind is returned when a drop rule names an unknown file family.
	ErrUnknownDropKind = zerr.New("unknown drop kind")

	// ErrBuildDirOverlapsSources is returned when a directory the build wipes holds project sources.
	ErrBuildDirOverlapsSources = zerr.New("build directory overlaps the project sources")

	// ErrStoreCreateFailed is returned when a store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create store directory")

	// ErrStoreReadFailed is returned when a store document cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read store document")

	// ErrStoreUnmarshalFailed is returned when a store document cannot be decoded.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal store document")

	// ErrStoreMarshalFailed is returned when a store document cannot be encoded.
	ErrStoreMarshalFailed = zerr.New("failed to marshal store document")

	// ErrStoreWriteFailed is returned when a store document cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write store document")

	// ErrLockFailed is returned when an advisory lock cannot be acquired.
	ErrLockFailed = zerr.New("failed to acquire lock")

	// ErrUnlockFailed is returned when an advisory lock cannot be released.
	ErrUnlockFailed = zerr.New("failed to release lock")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrRemoveFailed is returned when a path cannot be removed.
	ErrRemoveFailed = zerr.New("failed to remove path")

	// ErrWipeFailed is returned when the cache or output directory cannot be wiped.
	ErrWipeFailed = zerr.New("failed to wipe directory")

	// ErrProcessFailed is returned when a source file cannot be processed.
	ErrProcessFailed = zerr.New("failed to process file")

	// ErrBuildFailed is returned when the build finished with fatal errors.
	ErrBuildFailed = zerr.New("build failed")

	// ErrBuildLockFailed is returned when the build lockfile cannot be written or removed.
	ErrBuildLockFailed = zerr.New("failed to update build lockfile")

	// ErrLogWriteFailed is returned when a log artifact cannot be written.
	ErrLogWriteFailed = zerr.New("failed to write log artifact")

	// ErrFileOutsideModules is returned when a path belongs to no configured module.
	ErrFileOutsideModules = zerr.New("file is outside every module")

	// ErrWatchFailed is returned when the file system watcher cannot start.
	ErrWatchFailed = zerr.New("failed to start watcher")
)
