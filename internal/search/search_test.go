package search

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"telemetry-dashboard/internal/backend"
)

type countingSource struct {
	calls       atomic.Int32
	lastQuery   atomic.Value
	suggestions []backend.CitySuggestion
	err         error
}

func (s *countingSource) Search(ctx context.Context, query string, count int) ([]backend.CitySuggestion, error) {
	s.calls.Add(1)
	s.lastQuery.Store(query)
	return s.suggestions, s.err
}

func paris() backend.CitySuggestion {
	return backend.CitySuggestion{Name: "Paris", Latitude: 48.85, Longitude: 2.35}
}

func newTestTypeahead(t *testing.T, opts Options) *Typeahead {
	t.Helper()

	if opts.Settle == 0 {
		opts.Settle = 10 * time.Millisecond
	}

	ta, err := NewTypeahead(slog.New(slog.DiscardHandler), opts)
	if err != nil {
		t.Fatalf("NewTypeahead() error = %v", err)
	}

	return ta
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}

	t.Fatal("condition never became true")
}

func TestBurstCoalescesIntoOneLookup(t *testing.T) {
	t.Parallel()

	src := &countingSource{suggestions: []backend.CitySuggestion{paris()}}
	ta := newTestTypeahead(t, Options{Primary: src})

	for _, q := range []string{"P", "Pa", "Par", "Pari", "Paris"} {
		ta.SetQuery(q)
	}

	waitFor(t, func() bool { return src.calls.Load() == 1 })
	waitFor(t, func() bool { return len(ta.State().Suggestions) == 1 })

	if got := src.lastQuery.Load(); got != "Paris" {
		t.Errorf("lookup used query %q, want final query", got)
	}

	time.Sleep(30 * time.Millisecond)

	if got := src.calls.Load(); got != 1 {
		t.Errorf("burst produced %d lookups, want 1", got)
	}
}

func TestBlankQueryClearsWithoutLookup(t *testing.T) {
	t.Parallel()

	src := &countingSource{suggestions: []backend.CitySuggestion{paris()}}
	ta := newTestTypeahead(t, Options{Primary: src})

	ta.SetQuery("Paris")
	ta.Flush()
	waitFor(t, func() bool { return len(ta.State().Suggestions) == 1 })

	ta.SetQuery("   ")
	time.Sleep(30 * time.Millisecond)

	state := ta.State()
	if len(state.Suggestions) != 0 {
		t.Errorf("suggestions = %v, want cleared", state.Suggestions)
	}
	if state.Pending {
		t.Error("pending = true after clearing")
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("blank query triggered a lookup, total calls = %d", got)
	}
}

func TestFallbackCoversPrimaryOutage(t *testing.T) {
	t.Parallel()

	primary := &countingSource{err: errors.New("backend down")}
	fallback := &countingSource{suggestions: []backend.CitySuggestion{paris()}}
	ta := newTestTypeahead(t, Options{Primary: primary, Fallback: fallback})

	ta.SetQuery("Paris")
	ta.Flush()

	waitFor(t, func() bool { return len(ta.State().Suggestions) == 1 })

	state := ta.State()
	if state.Notice.Kind != NoticeNone {
		t.Errorf("notice = %+v, want none when the fallback answers", state.Notice)
	}
	if fallback.calls.Load() != 1 {
		t.Error("fallback was never consulted")
	}
}

func TestBothSourcesDownYieldsUnavailableNotice(t *testing.T) {
	t.Parallel()

	primary := &countingSource{err: errors.New("backend down")}
	fallback := &countingSource{err: errors.New("geocoder down")}
	ta := newTestTypeahead(t, Options{Primary: primary, Fallback: fallback})

	ta.SetQuery("Paris")
	ta.Flush()

	waitFor(t, func() bool { return ta.State().Notice.Kind == NoticeUnavailable })

	state := ta.State()
	if len(state.Suggestions) != 0 {
		t.Errorf("suggestions = %v, want empty on outage", state.Suggestions)
	}
}

func TestNoResultsNotice(t *testing.T) {
	t.Parallel()

	src := &countingSource{}
	ta := newTestTypeahead(t, Options{Primary: src})

	ta.SetQuery("Xyzzyville")
	ta.Flush()

	waitFor(t, func() bool { return ta.State().Notice.Kind == NoticeNoResults })
}

func TestSubmitReturnsFirstMatch(t *testing.T) {
	t.Parallel()

	src := &countingSource{suggestions: []backend.CitySuggestion{
		paris(),
		{Name: "Paris", Latitude: 33.66, Longitude: -95.55},
	}}
	ta := newTestTypeahead(t, Options{Primary: src})

	got, err := ta.Submit(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.Latitude != 48.85 {
		t.Errorf("Submit() = %+v, want the first suggestion", got)
	}

	if _, err := ta.Submit(context.Background(), "  "); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Submit(blank) error = %v, want ErrNoMatch", err)
	}
}

func TestSubmitFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := &countingSource{err: errors.New("backend down")}
	fallback := &countingSource{suggestions: []backend.CitySuggestion{paris()}}
	ta := newTestTypeahead(t, Options{Primary: primary, Fallback: fallback})

	got, err := ta.Submit(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got.Name != "Paris" {
		t.Errorf("Submit() = %+v", got)
	}
}
