package telemetry

import (
	"iter"
	"sync"
)

// DefaultCapacity is the number of samples the dashboard keeps in memory.
const DefaultCapacity = 200

// Window is a bounded store of recent samples in newest-first order.
//
// Two producers mutate it: the batch loader (ApplyBatch) and the live event
// handler (ApplyLive). Live arrivals are prepended without sorting, so the
// order is recent-arrival order, not strict time order; re-sorting on every
// push would be wasted work for a view that refreshes many times per second.
type Window struct {
	mu       sync.RWMutex
	capacity int
	samples  []Sample
}

// NewWindow creates a window with the given capacity.
// Non-positive capacities fall back to DefaultCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Window{capacity: capacity}
}

// ApplyBatch replaces the window contents wholesale. Batch results already
// reflect the requested filter, so they are never merged with what was there
// before. Samples beyond capacity are dropped from the tail.
func (w *Window) ApplyBatch(samples []Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := min(len(samples), w.capacity)

	w.samples = make([]Sample, n)
	copy(w.samples, samples[:n])
}

// ApplyLive prepends one live sample, evicting the oldest entry when the
// window is full. The sample's timestamp is not inspected.
func (w *Window) ApplyLive(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) >= w.capacity {
		w.samples = w.samples[:w.capacity-1]
	}

	w.samples = append([]Sample{s}, w.samples...)
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.samples)
}

// NewestFirst returns a restartable sequence over the samples in storage
// order (newest first), for tabular display. Each restart observes the
// window contents at that moment.
func (w *Window) NewestFirst() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		for _, s := range w.snapshot() {
			if !yield(s) {
				return
			}
		}
	}
}

// Chronological returns a restartable sequence over the samples in reverse
// storage order (oldest first), for chart display.
func (w *Window) Chronological() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		snap := w.snapshot()
		for i := len(snap) - 1; i >= 0; i-- {
			if !yield(snap[i]) {
				return
			}
		}
	}
}

// DeviceIDs returns the distinct device ids currently observed in the
// window, in recent-arrival order.
func (w *Window) DeviceIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	seen := make(map[string]struct{}, len(w.samples))
	ids := make([]string, 0, 8)

	for _, s := range w.samples {
		if _, ok := seen[s.DeviceID]; ok {
			continue
		}

		seen[s.DeviceID] = struct{}{}
		ids = append(ids, s.DeviceID)
	}

	return ids
}

func (w *Window) snapshot() []Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := make([]Sample, len(w.samples))
	copy(snap, w.samples)

	return snap
}
