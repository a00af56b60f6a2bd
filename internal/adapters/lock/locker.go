// Package lock provides advisory file locks scoped to cache directories.
package lock

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Locker = (*Locker)(nil)

// retryDelay is the interval between attempts to acquire a held lock.
const retryDelay = 50 * time.Millisecond

// Locker serializes access to a path across processes with flock(2) style advisory locks.
// Lock files live in a single directory and are named by the xxhash of the protected path.
type Locker struct {
	dir string
}

// NewLocker creates a Locker that keeps its lock files in dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir}
}

// LockFile returns the lock file protecting path.
func (l *Locker) LockFile(path string) string {
	name := strconv.FormatUint(xxhash.Sum64String(filepath.Clean(path)), 16)
	return filepath.Join(l.dir, name+".lock")
}

// WithLock acquires the lock for path, runs fn and releases the lock.
func (l *Locker) WithLock(ctx context.Context, path string, fn func() error) error {
	if err := os.MkdirAll(l.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockFailed.Error()), "path", l.dir)
	}

	file := l.LockFile(path)
	fl := flock.New(file)

	locked, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrLockFailed.Error()), "path", path)
	}
	if !locked {
		return zerr.With(domain.ErrLockFailed, "path", path)
	}

	fnErr := fn()

	if err := fl.Unlock(); err != nil && fnErr == nil {
		return zerr.With(zerr.Wrap(err, domain.ErrUnlockFailed.Error()), "path", path)
	}
	return fnErr
}
