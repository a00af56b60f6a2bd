package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/adapters/watcher"
	"go.trai.ch/incr/internal/core/ports"
	"go.trai.ch/incr/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func waitFor(t *testing.T, events <-chan ports.WatchEvent, path string, ops ...ports.WatchOp) ports.WatchEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if ev.Path == path && (len(ops) == 0 || slices.Contains(ops, ev.Operation)) {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcher_ReportsChanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	root := t.TempDir()
	w, err := watcher.NewWatcher(log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, root, filepath.Join(root, "missing")))
	defer func() { _ = w.Stop() }()

	events := make(chan ports.WatchEvent, 100)
	go func() {
		defer close(events)
		for ev := range w.Events() {
			events <- ev
		}
	}()

	file := filepath.Join(root, "a.less")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o600))
	waitFor(t, events, file, ports.OpCreate, ports.OpWrite)

	// New directories are watched as they appear.
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o750))
	waitFor(t, events, sub)
	nested := filepath.Join(sub, "b.ts")
	require.NoError(t, os.WriteFile(nested, []byte("b"), 0o600))
	waitFor(t, events, nested)

	require.NoError(t, os.Remove(file))
	waitFor(t, events, file, ports.OpRemove)
}
