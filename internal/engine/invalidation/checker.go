package invalidation

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/engine/depgraph"
	"golang.org/x/sync/errgroup"
)

var errDependencyChanged = errors.New("dependency changed")

// FileQuery identifies one file and its freshly computed content hash.
type FileQuery struct {
	Module string
	Rel    string
	Hash   string
}

// Key returns the project-relative path of the queried file.
func (q FileQuery) Key() string {
	return domain.JoinModulePath(q.Module, q.Rel)
}

// Verdict is the outcome of one file check.
type Verdict struct {
	Changed bool
	Reason  string
}

// Checker answers per-file questions against one previous generation.
//
// The previous generation must not change while the checker is in use. Checks may run
// concurrently; they share a memo of dependency verdicts.
type Checker struct {
	last    *domain.Store
	cfg     *domain.Config
	latches *Latches
	prober  ports.FileProber
	hasher  ports.Hasher
	index   *depgraph.Index

	mu   sync.Mutex
	memo map[string]bool
}

// NewChecker creates a checker over last. The dependency index is built once, here.
func (p *Policy) NewChecker(last *domain.Store, cfg *domain.Config, latches *Latches) *Checker {
	return &Checker{
		last:    last,
		cfg:     cfg,
		latches: latches,
		prober:  p.prober,
		hasher:  p.hasher,
		index:   depgraph.New(last.DependencyGraph()),
		memo:    make(map[string]bool),
	}
}

// Index returns the dependency index of the previous generation.
func (c *Checker) Index() *depgraph.Index {
	return c.index
}

// Memoized returns the remembered content verdict of a project-relative path.
func (c *Checker) Memoized(key string) (changed, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed, ok = c.memo[key]
	return changed, ok
}

func (c *Checker) remember(key string, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo[key] = changed
}

// IsFileChanged applies the file rules in priority order. The first rule that fires decides.
// An error is only returned when ctx is cancelled.
func (c *Checker) IsFileChanged(ctx context.Context, q FileQuery) (Verdict, error) {
	if c.last.IsFirstBuild() {
		return Verdict{Changed: true, Reason: "first build"}, nil
	}

	for _, kind := range domain.DropKinds() {
		if c.latches.IsSet(kind) && domain.MatchesDropKind(kind, q.Rel) {
			return Verdict{Changed: true, Reason: "cache dropped for " + kind.String() + " files"}, nil
		}
	}

	meta, ok := c.last.FileMeta(q.Module, q.Rel)
	if !ok {
		return Verdict{Changed: true, Reason: "new file"}, nil
	}

	if c.failedBefore(q) {
		return Verdict{Changed: true, Reason: "failed in the previous build"}, nil
	}

	key := q.Key()
	tracked := domain.IsCacheTracked(q.Rel)
	if meta.Hash != q.Hash {
		if tracked {
			c.remember(key, true)
		}
		return Verdict{Changed: true, Reason: "content changed"}, nil
	}
	if tracked {
		c.remember(key, false)
	}

	// TODO: drop once localization styles record their dictionary inputs as dependencies.
	if path.Base(q.Rel) == domain.LocalizationStyleFile {
		return Verdict{Changed: true, Reason: "localization style is always rebuilt"}, nil
	}

	if !tracked {
		return Verdict{}, nil
	}

	dep, changed, err := c.changedDependency(ctx, key)
	if err != nil {
		return Verdict{}, err
	}
	if changed {
		return Verdict{Changed: true, Reason: "dependency changed: " + dep}, nil
	}
	return Verdict{}, nil
}

func (c *Checker) failedBefore(q FileQuery) bool {
	if c.last.IsFailed(q.Module, q.Rel) {
		return true
	}
	if domain.IsTypescript(q.Rel) && c.last.IsTypescriptFailed(q.Module) {
		return true
	}
	if c.cfg.TscReport && c.last.Extra.TscReport {
		return slices.Contains(c.last.Extra.TscFilesWithErrors, q.Key())
	}
	return false
}

// changedDependency walks the transitive dependencies of key and returns the first one found
// whose content or existence changed.
func (c *Checker) changedDependency(ctx context.Context, key string) (string, bool, error) {
	deps := c.index.AllDependencies(key)
	if len(deps) == 0 {
		return "", false, nil
	}

	var (
		mu    sync.Mutex
		found string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DependencyCheckLimit)
	for _, dep := range deps {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if !c.contentChanged(dep) {
				return nil
			}
			mu.Lock()
			if found == "" {
				found = dep
			}
			mu.Unlock()
			return errDependencyChanged
		})
	}

	err := g.Wait()
	if errors.Is(err, errDependencyChanged) {
		return found, true, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

func (c *Checker) contentChanged(key string) bool {
	if changed, ok := c.Memoized(key); ok {
		return changed
	}
	changed := c.probe(key)
	c.remember(key, changed)
	return changed
}

// probe compares a dependency on disk with its previous record. Dependencies inside a module
// must have a record; dependencies outside every module are only checked for existence.
func (c *Checker) probe(key string) bool {
	if domain.IsExternalKey(key) {
		exists, err := c.prober.Exists(domain.ExternalPath(key))
		return err != nil || !exists
	}

	module, rel := domain.SplitModulePath(key)
	m, ok := c.cfg.Module(module)
	if !ok {
		return true
	}
	meta, ok := c.last.FileMeta(module, rel)
	if !ok {
		return true
	}
	abs := filepath.Join(c.cfg.ModuleRoot(m), filepath.FromSlash(rel))
	exists, err := c.prober.Exists(abs)
	if err != nil || !exists {
		return true
	}
	hash, err := c.hasher.HashFile(abs)
	if err != nil {
		return true
	}
	return hash != meta.Hash
}
