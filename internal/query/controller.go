// Package query owns the active telemetry filter and issues the REST call
// matching its shape, keeping the sample window consistent with the most
// recently selected filter.
package query

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

// Mode is the fetch strategy derived from the current filter shape.
type Mode string

const (
	// ModeAllLatest fetches the latest samples across all devices.
	ModeAllLatest Mode = "all-latest"
	// ModeDeviceLatest fetches the latest samples for one device.
	ModeDeviceLatest Mode = "device-latest"
	// ModeDeviceRange fetches samples for one device within a time range.
	ModeDeviceRange Mode = "device-range"
)

// Filter describes what the monitoring view is looking at. A range is only
// meaningful when a device is selected.
type Filter struct {
	DeviceID     string
	RangeEnabled bool
	Start        time.Time
	End          time.Time
}

// Mode derives the fetch strategy from the filter shape. An enabled range
// without a device selection is ignored.
func (f Filter) Mode() Mode {
	if f.DeviceID == "" {
		return ModeAllLatest
	}

	if f.RangeEnabled {
		return ModeDeviceRange
	}

	return ModeDeviceLatest
}

// rangeComplete reports whether both bounds are set.
func (f Filter) rangeComplete() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

// Fetcher is the slice of the backend client the controller needs.
type Fetcher interface {
	ListSamples(ctx context.Context, limit int) ([]telemetry.Sample, error)
	DeviceSamples(ctx context.Context, deviceID string, limit int) ([]telemetry.Sample, error)
	DeviceSamplesRange(ctx context.Context, deviceID string, start, end time.Time) ([]telemetry.Sample, error)
}

// Controller issues the REST call matching the current filter and applies
// the result to the window. Every filter change bumps a generation counter;
// a resolving fetch whose generation no longer matches is discarded, so the
// window always reflects the last-selected filter even when an earlier,
// slower request resolves after a newer one (last-filter-wins).
type Controller struct {
	l       *slog.Logger
	fetcher Fetcher
	window  *telemetry.Window
	limit   int

	mu     sync.Mutex
	filter Filter
	gen    uint64
}

// NewController creates a controller writing into window. limit caps every
// latest-samples fetch, normally the window capacity.
func NewController(l *slog.Logger, fetcher Fetcher, window *telemetry.Window, limit int) *Controller {
	if limit <= 0 {
		limit = telemetry.DefaultCapacity
	}

	return &Controller{
		l:       l.With(slog.String("component", "query-controller")),
		fetcher: fetcher,
		window:  window,
		limit:   limit,
	}
}

// Filter returns the currently active filter.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.filter
}

// SetDevice selects a device (empty string returns to all-devices mode) and
// refreshes.
func (c *Controller) SetDevice(deviceID string) {
	c.update(func(f *Filter) { f.DeviceID = deviceID })
}

// SetRangeEnabled toggles range mode and refreshes.
func (c *Controller) SetRangeEnabled(enabled bool) {
	c.update(func(f *Filter) { f.RangeEnabled = enabled })
}

// SetRangeStart sets the range lower bound and refreshes.
func (c *Controller) SetRangeStart(start time.Time) {
	c.update(func(f *Filter) { f.Start = start })
}

// SetRangeEnd sets the range upper bound and refreshes.
func (c *Controller) SetRangeEnd(end time.Time) {
	c.update(func(f *Filter) { f.End = end })
}

// SetFilter replaces the whole filter and refreshes.
func (c *Controller) SetFilter(filter Filter) {
	c.update(func(f *Filter) { *f = filter })
}

// Refresh re-issues the fetch for the current filter.
func (c *Controller) Refresh() {
	c.update(func(*Filter) {})
}

// update mutates the filter, invalidates any in-flight fetch, and
// dispatches a new one when the filter shape allows it.
func (c *Controller) update(mutate func(*Filter)) {
	c.mu.Lock()

	mutate(&c.filter)
	c.gen++

	filter := c.filter
	gen := c.gen

	c.mu.Unlock()

	if filter.Mode() == ModeDeviceRange && !filter.rangeComplete() {
		// Waiting for the user to pick both bounds; deliberately no request.
		return
	}

	go c.fetch(filter, gen)
}

// fetch resolves one filter snapshot and applies the outcome unless the
// filter moved on in the meantime. Failures clear the window: transient
// fetch errors in a polling view show as "no data", not as an alert.
func (c *Controller) fetch(filter Filter, gen uint64) {
	samples, err := c.resolve(context.Background(), filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.l.Debug("discarding stale fetch result",
			slog.String("mode", string(filter.Mode())),
			slog.String("deviceID", filter.DeviceID))
		return
	}

	if err != nil {
		c.l.Warn("samples fetch failed, clearing window", slog.String("mode", string(filter.Mode())), utils.ErrAttr(err))
		c.window.ApplyBatch(nil)
		return
	}

	c.window.ApplyBatch(samples)
}

func (c *Controller) resolve(ctx context.Context, filter Filter) ([]telemetry.Sample, error) {
	switch filter.Mode() {
	case ModeDeviceLatest:
		samples, err := c.fetcher.DeviceSamples(ctx, filter.DeviceID, c.limit)
		if err != nil {
			return nil, err
		}

		// The endpoint returns oldest first; the window canon is newest first.
		slices.Reverse(samples)

		return samples, nil

	case ModeDeviceRange:
		return c.fetcher.DeviceSamplesRange(ctx, filter.DeviceID, filter.Start, filter.End)

	default:
		return c.fetcher.ListSamples(ctx, c.limit)
	}
}
