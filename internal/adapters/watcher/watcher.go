// Package watcher reports source changes for rebuild-on-save.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	".git":                     true,
	".jj":                      true,
	"node_modules":             true,
	domain.ModuleCacheDirName:  true,
	domain.DefaultCacheDirName: true,
}

const eventBuffer = 100

// Watcher watches module source roots using fsnotify.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger ports.Logger
	events chan ports.WatchEvent
}

// NewWatcher creates a new file system watcher.
func NewWatcher(logger ports.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}
	return &Watcher{
		fsw:    fsw,
		logger: logger,
		events: make(chan ports.WatchEvent, eventBuffer),
	}, nil
}

// Start watches every directory below the given roots. Missing roots are skipped.
func (w *Watcher) Start(ctx context.Context, roots ...string) error {
	for _, root := range roots {
		for dir := range directories(root) {
			if err := w.fsw.Add(dir); err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrWatchFailed.Error()), "path", dir)
			}
		}
	}

	go w.loop(ctx)
	return nil
}

// Stop releases the underlying watcher. Events is closed once the loop exits.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// Events returns an iterator over the translated events.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for ev := range w.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func directories(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable directories are not watched
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skippedDirs[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			op, ok := translate(ev.Op)
			if !ok {
				continue
			}

			if op == ports.OpCreate {
				w.watchNewDir(ev.Name)
			}

			select {
			case w.events <- ports.WatchEvent{Path: ev.Name, Operation: op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: " + err.Error())
		}
	}
}

func (w *Watcher) watchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || skippedDirs[info.Name()] {
		return
	}
	for dir := range directories(path) {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("watcher: cannot watch " + dir + ": " + err.Error())
		}
	}
}

// translate maps an fsnotify op to a WatchOp. Chmod-only events are dropped.
func translate(op fsnotify.Op) (ports.WatchOp, bool) {
	switch {
	case op.Has(fsnotify.Write):
		return ports.OpWrite, true
	case op.Has(fsnotify.Create):
		return ports.OpCreate, true
	case op.Has(fsnotify.Remove):
		return ports.OpRemove, true
	case op.Has(fsnotify.Rename):
		return ports.OpRename, true
	default:
		return 0, false
	}
}
