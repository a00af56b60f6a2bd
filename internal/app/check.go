package app

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.trai.ch/incr/internal/core/ports"
)

var _ ports.Remover = (*plannedRemover)(nil)

// plannedRemover records the removals a build would perform without touching the file system.
type plannedRemover struct {
	mu    sync.Mutex
	paths []string
}

func (r *plannedRemover) RemoveAll(_ context.Context, paths []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
	return slices.Clone(paths), nil
}

func (r *plannedRemover) planned() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.paths)
	slices.Sort(out)
	return out
}

// Check reports what the next build would reprocess and why, without writing anything.
// Report.Garbage lists the directories the build would wipe.
func (a *App) Check(ctx context.Context) (*Report, error) {
	started := time.Now()

	ctx, span := a.tracer.Start(ctx, "check")
	defer span.End()

	cfg, err := a.loadConfig()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	planned := &plannedRemover{}
	c, err := a.openCache(ctx, cfg, planned)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	verdicts, err := a.check(ctx, cfg, c)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	changed := changedOnly(verdicts)

	return &Report{
		Result:   c.CheckResult(),
		Files:    len(verdicts),
		Changed:  keys(changed),
		Failed:   map[string][]string{},
		Garbage:  planned.planned(),
		Duration: time.Since(started),
	}, nil
}
