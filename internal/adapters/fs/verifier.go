package fs

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ProbeLimit bounds concurrent existence probes.
const ProbeLimit = 50

var (
	_ ports.FileProber = (*Verifier)(nil)
	_ ports.Remover    = (*Remover)(nil)
)

// Verifier checks the existence of files without following symlinks.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Exists reports whether path exists. Broken symlinks exist.
func (v *Verifier) Exists(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}
	return true, nil
}

// ModTime returns the modification time of path itself, not of a symlink target.
func (v *Verifier) ModTime(path string) (time.Time, bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}
	return info.ModTime(), true, nil
}

// Missing returns the paths that do not exist, in input order.
func (v *Verifier) Missing(ctx context.Context, paths []string) ([]string, error) {
	found := make([]bool, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(ProbeLimit)

	for i, p := range paths {
		g.Go(func() error {
			ok, err := v.Exists(p)
			if err != nil {
				return err
			}
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var missing []string
	for i, p := range paths {
		if !found[i] {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// Remover deletes paths with bounded concurrency.
type Remover struct {
	limit int
}

// NewRemover creates a Remover running at most limit removals at once.
func NewRemover(limit int) *Remover {
	if limit <= 0 {
		limit = ProbeLimit
	}
	return &Remover{limit: limit}
}

// RemoveAll removes every path and returns the ones that were removed. Removal is best effort:
// failures are collected and returned joined after every path was attempted.
func (r *Remover) RemoveAll(ctx context.Context, paths []string) ([]string, error) {
	var (
		mu      sync.Mutex
		removed = make([]string, 0, len(paths))
		errs    []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for _, p := range paths {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			err := os.RemoveAll(p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, zerr.With(zerr.Wrap(err, domain.ErrRemoveFailed.Error()), "path", p))
				return nil
			}
			removed = append(removed, p)
			return nil
		})
	}
	_ = g.Wait()

	return removed, errors.Join(errs...)
}
