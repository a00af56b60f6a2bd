package cache

import (
	"context"
	"maps"
	"path/filepath"
	"slices"

	"go.trai.ch/incr/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// ProbeLimit bounds concurrent modification time probes of garbage candidates.
const ProbeLimit = 50

// RemoveDeletedFiles purges sources known to be deleted from both generations. Their outputs
// that are safe to remove become garbage candidates.
func (c *Cache) RemoveDeletedFiles(deleted []string) {
	if len(deleted) == 0 {
		return
	}
	outputs := c.last.OutputFilesSetForDeletedFiles(deleted, c.last.IsFirstBuild())
	for _, p := range deleted {
		module, rel := domain.SplitModulePath(p)
		c.current.RemoveFile(module, rel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.staleOutputs, outputs)
}

// ListForRemoveFromOutputDir returns the absolute paths of outputs of the previous build that
// the current build no longer produces. Paths rewritten during this build are kept, and every
// candidate is mirrored into both roots when they differ.
func (c *Cache) ListForRemoveFromOutputDir(ctx context.Context, cachePath, outputPath string) ([]string, error) {
	prev := c.last.OutputFilesSet()
	c.mu.Lock()
	maps.Copy(prev, c.staleOutputs)
	c.mu.Unlock()

	curr := c.current.OutputFilesSet()
	roots := []string{outputPath}
	if filepath.Clean(cachePath) != filepath.Clean(outputPath) {
		roots = append(roots, cachePath)
	}

	var candidates []string
	for _, rel := range slices.Sorted(maps.Keys(prev)) {
		if _, kept := curr[rel]; kept {
			continue
		}
		for _, root := range roots {
			candidates = append(candidates, filepath.Join(root, filepath.FromSlash(rel)))
		}
	}

	start := c.current.StartBuildTime
	stale := make([]bool, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(ProbeLimit)
	for i, p := range candidates {
		g.Go(func() error {
			mtime, exists, err := c.prober.ModTime(p)
			if err != nil {
				return err
			}
			stale[i] = exists && mtime.UnixMilli() < start
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for i, p := range candidates {
		if stale[i] {
			out = append(out, p)
		}
	}
	return out, nil
}

// RemoveGarbage deletes the given paths and records each removed one in the garbage list.
func (c *Cache) RemoveGarbage(ctx context.Context, paths []string) error {
	removed, err := c.remover.RemoveAll(ctx, paths)

	c.mu.Lock()
	c.garbage = append(c.garbage, removed...)
	c.mu.Unlock()

	for _, p := range removed {
		c.logger.Debug("removed " + p)
	}
	return err
}

// Garbage returns the sorted paths removed as garbage during this build.
func (c *Cache) Garbage() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.garbage)
	slices.Sort(out)
	return out
}
