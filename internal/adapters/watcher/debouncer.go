package watcher

import (
	"slices"
	"sync"
	"time"
	"unique"
)

// Debouncer collects the paths reported within a quiet window and delivers them as one sorted
// batch once no new path arrived for the whole window.
type Debouncer struct {
	mu      sync.Mutex
	pending map[unique.Handle[string]]struct{}
	timer   *time.Timer
	window  time.Duration
	deliver func(paths []string)
}

// NewDebouncer creates a debouncer that calls deliver with each batch.
func NewDebouncer(window time.Duration, deliver func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[unique.Handle[string]]struct{}),
		window:  window,
		deliver: deliver,
	}
}

// Add records a changed path and restarts the quiet window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[unique.Make(path)] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Pending returns the number of paths waiting for delivery.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	batch := d.drain()
	d.mu.Unlock()

	if len(batch) > 0 && d.deliver != nil {
		go d.deliver(batch)
	}
}

// Flush delivers the pending batch now and waits for deliver to return.
// It does nothing when the window already expired.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		if !d.timer.Stop() {
			d.mu.Unlock()
			return
		}
		d.timer = nil
	}
	batch := d.drain()
	d.mu.Unlock()

	if len(batch) > 0 && d.deliver != nil {
		d.deliver(batch)
	}
}

// drain empties the pending set. The caller holds mu.
func (d *Debouncer) drain() []string {
	if len(d.pending) == 0 {
		return nil
	}
	batch := make([]string, 0, len(d.pending))
	for h := range d.pending {
		batch = append(batch, h.Value())
	}
	clear(d.pending)
	slices.Sort(batch)
	return batch
}
