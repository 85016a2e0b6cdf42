package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"telemetry-dashboard/internal/backend"
	"telemetry-dashboard/internal/predict"
	"telemetry-dashboard/internal/query"
	"telemetry-dashboard/internal/search"
	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

type fakeStream struct {
	connected bool
	lastEvent time.Time
}

func (f *fakeStream) Connected() bool      { return f.connected }
func (f *fakeStream) LastEvent() time.Time { return f.lastEvent }

type fakeFetcher struct{}

func (f *fakeFetcher) ListSamples(ctx context.Context, limit int) ([]telemetry.Sample, error) {
	return nil, nil
}

func (f *fakeFetcher) DeviceSamples(ctx context.Context, deviceID string, limit int) ([]telemetry.Sample, error) {
	return nil, nil
}

func (f *fakeFetcher) DeviceSamplesRange(ctx context.Context, deviceID string, start, end time.Time) ([]telemetry.Sample, error) {
	return nil, nil
}

type fakePredictBackend struct{}

func (f *fakePredictBackend) CurrentWeather(ctx context.Context, lat, lon float64, city string) (*backend.CurrentWeather, error) {
	return &backend.CurrentWeather{City: city, Description: "clear"}, nil
}

func (f *fakePredictBackend) Forecast(ctx context.Context, lat, lon float64, city string, days int) (*backend.Forecast, error) {
	return &backend.Forecast{City: city}, nil
}

func (f *fakePredictBackend) WeatherAnalysis(ctx context.Context, lat, lon float64, city string, limitData int) (*backend.WeatherAnalysis, error) {
	return &backend.WeatherAnalysis{}, nil
}

func (f *fakePredictBackend) DevicePrediction(ctx context.Context, deviceID string, horizonSeconds float64, limit int) (*backend.DevicePrediction, error) {
	return &backend.DevicePrediction{DeviceID: deviceID, PredictedTemperature: 20}, nil
}

func (f *fakePredictBackend) WeatherAwarePrediction(ctx context.Context, deviceID string, lat, lon float64, city string, horizonSeconds float64, limit int, blendFactor float64) (*backend.WeatherAwarePrediction, error) {
	return &backend.WeatherAwarePrediction{DeviceID: deviceID, City: city}, nil
}

func (f *fakePredictBackend) Prediction24h(ctx context.Context, lat, lon float64, city, deviceID string, blendFactor float64, limit int) (*backend.Prediction24h, error) {
	return &backend.Prediction24h{DeviceID: deviceID, City: city}, nil
}

type fakeDevices struct {
	devices map[string]backend.Device
}

func (f *fakeDevices) ListDevices(ctx context.Context) ([]backend.Device, error) {
	var out []backend.Device
	for _, d := range f.devices {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDevices) GetDevice(ctx context.Context, deviceID string) (*backend.Device, error) {
	d, ok := f.devices[deviceID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDevices) CreateDevice(ctx context.Context, req backend.DeviceRequest) (*backend.Device, error) {
	d := backend.Device{ID: req.ID, Name: req.Name, Status: "registered"}
	f.devices[d.ID] = d
	return &d, nil
}

func (f *fakeDevices) UpdateDevice(ctx context.Context, deviceID string, req backend.DeviceRequest) (*backend.Device, error) {
	d, ok := f.devices[deviceID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	d.Name = req.Name
	f.devices[deviceID] = d
	return &d, nil
}

func (f *fakeDevices) DeleteDevice(ctx context.Context, deviceID string) error {
	if _, ok := f.devices[deviceID]; !ok {
		return backend.ErrNotFound
	}
	delete(f.devices, deviceID)
	return nil
}

type citySource struct{}

func (citySource) Search(ctx context.Context, q string, count int) ([]backend.CitySuggestion, error) {
	if q == "Paris" {
		return []backend.CitySuggestion{{Name: "Paris", Latitude: 48.85, Longitude: 2.35}}, nil
	}
	return nil, nil
}

func newTestServer(t *testing.T, stream Connectivity) (*httptest.Server, *telemetry.Window) {
	t.Helper()

	l := slog.New(slog.DiscardHandler)
	window := telemetry.NewWindow(telemetry.DefaultCapacity)

	ctrl := query.NewController(l, &fakeFetcher{}, window, telemetry.DefaultCapacity)

	typeahead, err := search.NewTypeahead(l, search.Options{Primary: citySource{}, Settle: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewTypeahead() error = %v", err)
	}

	orch, err := predict.NewOrchestrator(l, predict.Options{Backend: &fakePredictBackend{}, Window: window})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	devices := &fakeDevices{devices: map[string]backend.Device{
		"dev-1": {ID: "dev-1", Status: "active"},
	}}

	h := NewHandler(l, window, stream, ctrl, typeahead, orch, devices)
	srv := httptest.NewServer(h.Routes(NewMiddlewareHandler(l)))
	t.Cleanup(srv.Close)

	return srv, window
}

func get[T any](t *testing.T, srv *httptest.Server, path string, wantStatus int) T {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}

	out, err := utils.FromJSONStream[T](resp.Body)
	if err != nil {
		t.Fatalf("GET %s decode: %v", path, err)
	}

	return out
}

func send[T any](t *testing.T, srv *httptest.Server, method, path, body string, wantStatus int) T {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, path, resp.StatusCode, wantStatus)
	}

	var zero T
	if resp.StatusCode == http.StatusNoContent {
		return zero
	}

	out, err := utils.FromJSONStream[T](resp.Body)
	if err != nil {
		t.Fatalf("%s %s decode: %v", method, path, err)
	}

	return out
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeStream{})

	resp := get[PingResponse](t, srv, "/ping", http.StatusOK)
	if resp.Status != PingStatusOK {
		t.Errorf("status = %v", resp.Status)
	}
}

func TestConnectivityReflectsStream(t *testing.T) {
	t.Parallel()

	last := time.Date(2025, 1, 28, 12, 0, 0, 0, time.UTC)
	srv, _ := newTestServer(t, &fakeStream{connected: true, lastEvent: last})

	resp := get[ConnectivityResponse](t, srv, "/api/v1/connectivity", http.StatusOK)
	if !resp.Connected {
		t.Error("connected = false")
	}
	if resp.LastEvent == nil || *resp.LastEvent != "2025-01-28T12:00:00Z" {
		t.Errorf("last_event = %v", resp.LastEvent)
	}
}

func TestSamplesOrders(t *testing.T) {
	t.Parallel()

	srv, window := newTestServer(t, &fakeStream{})
	window.ApplyBatch([]telemetry.Sample{
		{DeviceID: "d1", Timestamp: "2025-01-28T10:00:02Z"},
		{DeviceID: "d1", Timestamp: "2025-01-28T10:00:01Z"},
		{DeviceID: "d1", Timestamp: "2025-01-28T10:00:00Z"},
	})

	desc := get[SamplesResponse](t, srv, "/api/v1/samples", http.StatusOK)
	if desc.Count != 3 || desc.Samples[0].Timestamp != "2025-01-28T10:00:02Z" {
		t.Errorf("desc = %+v", desc)
	}

	asc := get[SamplesResponse](t, srv, "/api/v1/samples?order=asc", http.StatusOK)
	if asc.Samples[0].Timestamp != "2025-01-28T10:00:00Z" {
		t.Errorf("asc first = %s", asc.Samples[0].Timestamp)
	}

	limited := get[SamplesResponse](t, srv, "/api/v1/samples?limit=2", http.StatusOK)
	if limited.Count != 2 {
		t.Errorf("limited count = %d", limited.Count)
	}

	// A bounded chronological view is the newest N in time order, not the
	// oldest N.
	ascLimited := get[SamplesResponse](t, srv, "/api/v1/samples?order=asc&limit=2", http.StatusOK)
	if ascLimited.Count != 2 ||
		ascLimited.Samples[0].Timestamp != "2025-01-28T10:00:01Z" ||
		ascLimited.Samples[1].Timestamp != "2025-01-28T10:00:02Z" {
		t.Errorf("asc limited = %+v, want newest two chronologically", ascLimited.Samples)
	}

	get[ErrorResponse](t, srv, "/api/v1/samples?order=sideways", http.StatusBadRequest)
}

func TestFilterRoundTrip(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeStream{})

	initial := get[FilterResponse](t, srv, "/api/v1/filter", http.StatusOK)
	if initial.Mode != "all-latest" {
		t.Errorf("initial mode = %q", initial.Mode)
	}

	updated := send[FilterResponse](t, srv, http.MethodPut, "/api/v1/filter",
		`{"device_id":"d1","range_enabled":true,"start":"2025-01-28T10:00:00Z","end":"2025-01-28T12:00:00Z"}`,
		http.StatusOK)
	if updated.Mode != "device-range" {
		t.Errorf("mode = %q, want device-range", updated.Mode)
	}

	bad := send[ErrorResponse](t, srv, http.MethodPut, "/api/v1/filter",
		`{"device_id":"d1","range_enabled":true,"start":"yesterday"}`,
		http.StatusBadRequest)
	if bad.Errors["start"] == "" {
		t.Errorf("validation errors = %v", bad.Errors)
	}
}

func TestSearchCommitByQuery(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeStream{})

	resp := send[SearchCommitResponse](t, srv, http.MethodPost, "/api/v1/search/commit",
		`{"query":"Paris"}`, http.StatusOK)
	if resp.City != "Paris" || resp.Latitude != 48.85 {
		t.Errorf("commit = %+v", resp)
	}

	send[ErrorResponse](t, srv, http.MethodPost, "/api/v1/search/commit",
		`{"query":"Xyzzyville"}`, http.StatusNotFound)

	send[ErrorResponse](t, srv, http.MethodPost, "/api/v1/search/commit",
		`{}`, http.StatusBadRequest)
}

func TestSearchQueryAccepted(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeStream{})

	state := send[search.State](t, srv, http.MethodPut, "/api/v1/search/query",
		`{"query":"Paris"}`, http.StatusAccepted)
	if state.Query != "Paris" {
		t.Errorf("query = %q", state.Query)
	}
}

func TestPredictionsRequireDevice(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeStream{})

	send[ErrorResponse](t, srv, http.MethodPost, "/api/v1/predictions",
		`{}`, http.StatusBadRequest)

	send[predict.Panels](t, srv, http.MethodPost, "/api/v1/predictions",
		`{"device_id":"dev-1"}`, http.StatusAccepted)

	// An explicit zero blend factor is a valid pure-weather request.
	send[predict.Panels](t, srv, http.MethodPost, "/api/v1/predictions",
		`{"device_id":"dev-1","blend_factor":0}`, http.StatusAccepted)
}

func TestDeviceProxy(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, &fakeStream{})

	device := get[backend.Device](t, srv, "/api/v1/devices/dev-1", http.StatusOK)
	if device.ID != "dev-1" {
		t.Errorf("device = %+v", device)
	}

	get[ErrorResponse](t, srv, "/api/v1/devices/ghost", http.StatusNotFound)

	created := send[backend.Device](t, srv, http.MethodPost, "/api/v1/devices/",
		`{"id":"dev-2"}`, http.StatusCreated)
	if created.ID != "dev-2" {
		t.Errorf("created = %+v", created)
	}

	send[struct{}](t, srv, http.MethodDelete, "/api/v1/devices/dev-2", "", http.StatusNoContent)
}
