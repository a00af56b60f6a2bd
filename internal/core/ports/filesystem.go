package ports

import (
	"context"
	"time"
)

// FileProber inspects paths without following symlinks, so broken links count as present.
//
//go:generate go run go.uber.org/mock/mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileProber interface {
	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// Missing returns the paths that do not exist, in input order.
	Missing(ctx context.Context, paths []string) ([]string, error)

	// ModTime returns the modification time of path and whether it exists.
	ModTime(path string) (time.Time, bool, error)
}

// Remover deletes paths.
type Remover interface {
	// RemoveAll removes every path and returns the ones that were removed.
	// Failures do not stop the remaining removals and are returned joined.
	RemoveAll(ctx context.Context, paths []string) ([]string, error)
}
