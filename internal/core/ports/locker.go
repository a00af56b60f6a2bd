package ports

import "context"

// Locker provides advisory locks scoped to a path.
//
//go:generate go run go.uber.org/mock/mockgen -source=locker.go -destination=mocks/mock_locker.go -package=mocks
type Locker interface {
	// WithLock acquires the lock protecting path, runs fn and releases the lock.
	WithLock(ctx context.Context, path string, fn func() error) error
}
