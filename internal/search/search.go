// Package search implements the debounced city typeahead: keystrokes settle
// for a quiet period before a lookup is dispatched, stale responses are
// discarded, and a geocoding fallback covers backend outages.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"telemetry-dashboard/internal/backend"
	"telemetry-dashboard/pkg/debounce"
	"telemetry-dashboard/pkg/utils"
)

// DefaultSettle is the quiet period a query must hold before a suggestion
// lookup goes out.
const DefaultSettle = 350 * time.Millisecond

// DefaultLimit is the number of suggestions requested per lookup.
const DefaultLimit = 5

// ErrNoMatch is returned by Submit when neither source knows the city.
var ErrNoMatch = errors.New("no matching city")

// Source resolves free-text queries to city suggestions.
type Source interface {
	Search(ctx context.Context, query string, count int) ([]backend.CitySuggestion, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context, query string, count int) ([]backend.CitySuggestion, error)

func (f SourceFunc) Search(ctx context.Context, query string, count int) ([]backend.CitySuggestion, error) {
	return f(ctx, query, count)
}

// BackendSource exposes the monitoring backend's city search as a Source.
func BackendSource(c *backend.Client) Source {
	return SourceFunc(c.SearchCities)
}

// NoticeKind classifies the message shown alongside suggestions.
type NoticeKind string

const (
	NoticeNone        NoticeKind = ""
	NoticeNoResults   NoticeKind = "no-results"
	NoticeUnavailable NoticeKind = "unavailable"
)

// Notice is a user-facing status for the suggestion list.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

// State is a snapshot of the typeahead.
type State struct {
	Query       string                   `json:"query"`
	Suggestions []backend.CitySuggestion `json:"suggestions"`
	Pending     bool                     `json:"pending"`
	Notice      Notice                   `json:"notice"`
}

// Options configures a Typeahead.
type Options struct {
	Primary  Source
	Fallback Source
	Settle   time.Duration
	Limit    int
}

// Typeahead coalesces rapid query edits into a single suggestion lookup.
// Responses arriving for superseded queries are dropped, so the suggestion
// list always reflects the most recent input.
type Typeahead struct {
	l        *slog.Logger
	primary  Source
	fallback Source
	limit    int
	deb      *debounce.Debouncer

	mu          sync.Mutex
	gen         uint64
	query       string
	suggestions []backend.CitySuggestion
	pending     bool
	notice      Notice
}

func NewTypeahead(l *slog.Logger, opts Options) (*Typeahead, error) {
	if opts.Primary == nil {
		return nil, errors.New("primary source is required")
	}

	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Typeahead{
		l:        l.With(slog.String("component", "search")),
		primary:  opts.Primary,
		fallback: opts.Fallback,
		limit:    limit,
		deb:      debounce.New(settle),
	}, nil
}

// SetQuery records a keystroke. Blank input clears the suggestion list
// immediately without touching the network; anything else waits out the
// settle period before a lookup is dispatched.
func (t *Typeahead) SetQuery(query string) {
	trimmed := strings.TrimSpace(query)

	t.mu.Lock()
	t.query = query
	if trimmed == "" {
		t.gen++
		t.suggestions = nil
		t.pending = false
		t.notice = Notice{}
		t.mu.Unlock()

		t.deb.Cancel()

		return
	}
	t.mu.Unlock()

	t.deb.Call(func() { t.dispatch(trimmed) })
}

// Flush skips the remaining settle time for the pending query, if any.
func (t *Typeahead) Flush() {
	t.deb.Flush()
}

// Clear drops the query, any in-flight lookup and the suggestion list.
func (t *Typeahead) Clear() {
	t.SetQuery("")
}

// State returns a snapshot of the current typeahead state.
func (t *Typeahead) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	suggestions := make([]backend.CitySuggestion, len(t.suggestions))
	copy(suggestions, t.suggestions)

	return State{
		Query:       t.query,
		Suggestions: suggestions,
		Pending:     t.pending,
		Notice:      t.notice,
	}
}

// Submit resolves a query synchronously and returns the best match. Used
// when the operator commits a city without picking a suggestion.
func (t *Typeahead) Submit(ctx context.Context, query string) (backend.CitySuggestion, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return backend.CitySuggestion{}, ErrNoMatch
	}

	suggestions, err := t.lookup(ctx, trimmed)
	if err != nil {
		return backend.CitySuggestion{}, fmt.Errorf("resolving city %q: %w", trimmed, err)
	}

	if len(suggestions) == 0 {
		return backend.CitySuggestion{}, ErrNoMatch
	}

	return suggestions[0], nil
}

func (t *Typeahead) dispatch(query string) {
	t.mu.Lock()
	// The query may have been blanked after the settle timer was armed.
	if strings.TrimSpace(t.query) == "" {
		t.mu.Unlock()
		return
	}
	t.gen++
	gen := t.gen
	t.pending = true
	t.mu.Unlock()

	go t.fetch(query, gen)
}

func (t *Typeahead) fetch(query string, gen uint64) {
	suggestions, err := t.lookup(context.Background(), query)

	notice := Notice{}
	switch {
	case err != nil:
		t.l.Warn("city lookup failed", slog.String("query", query), utils.ErrAttr(err))
		notice = Notice{Kind: NoticeUnavailable, Message: "search unavailable"}
		suggestions = nil
	case len(suggestions) == 0:
		notice = Notice{Kind: NoticeNoResults, Message: fmt.Sprintf("no results for %q", query)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return
	}

	t.suggestions = suggestions
	t.pending = false
	t.notice = notice
}

// lookup tries the backend first and falls back to the public geocoder, so
// a backend outage degrades to slightly staler city data instead of a dead
// search box.
func (t *Typeahead) lookup(ctx context.Context, query string) ([]backend.CitySuggestion, error) {
	suggestions, err := t.primary.Search(ctx, query, t.limit)
	if err == nil {
		return suggestions, nil
	}

	if t.fallback == nil {
		return nil, err
	}

	t.l.Debug("primary search failed, using fallback", utils.ErrAttr(err))

	suggestions, ferr := t.fallback.Search(ctx, query, t.limit)
	if ferr != nil {
		return nil, fmt.Errorf("both sources failed: %w", errors.Join(err, ferr))
	}

	return suggestions, nil
}
