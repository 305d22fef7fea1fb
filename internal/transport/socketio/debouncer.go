package socketio

import (
	"slices"
	"sync"
	"time"
)

// BroadcastDebouncer collapses bursts of pushes into one push per key.
// Within the debounce window only the most recent callback of each key is
// kept; when the window elapses without further triggers the pending
// callbacks run in key order.
type BroadcastDebouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]func()
	timer   *time.Timer
	stopped bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// A zero window still defers callbacks to a timer goroutine.
func NewBroadcastDebouncer(window time.Duration) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:  window,
		pending: make(map[string]func()),
	}
}

// Trigger schedules fn under key, replacing any callback pending for the
// same key, and restarts the window.
func (d *BroadcastDebouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[key] = fn

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// Flush runs pending callbacks immediately.
func (d *BroadcastDebouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.flush()
}

// flush fires pending callbacks and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	pending := d.pending
	d.pending = make(map[string]func())
	d.mu.Unlock()

	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		pending[key]()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	clear(d.pending)
}
