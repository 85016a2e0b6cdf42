// Package debounce coalesces bursts of calls into a single deferred
// invocation after a quiet period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recent function passed to Call once no new call
// has arrived for the configured quiet period. Earlier pending functions are
// discarded, never run.
type Debouncer struct {
	mu      sync.Mutex
	quiet   time.Duration
	timer   *time.Timer
	pending func()
}

// New creates a Debouncer with the given quiet period.
func New(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet}
}

// Call schedules fn to run after the quiet period, replacing any pending
// function and restarting the timer.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = fn

	if d.timer != nil {
		d.timer.Stop()
	}

	// The closure captures its own timer so a stale timer that already
	// expired before Stop cannot fire the replacement early.
	var tm *time.Timer
	tm = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		current := d.timer == tm
		d.mu.Unlock()

		if current {
			d.fire()
		}
	})
	d.timer = tm
}

// Flush runs any pending function immediately instead of waiting for the
// quiet period.
func (d *Debouncer) Flush() {
	d.fire()
}

// Cancel drops any pending function without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = nil

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	// Run outside the lock so fn may call back into the debouncer
	if fn != nil {
		fn()
	}
}
