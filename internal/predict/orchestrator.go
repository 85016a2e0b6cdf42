// Package predict drives the six analysis panels: three keyed to the
// selected location (current weather, forecast, weather analysis) and three
// keyed to a submitted device (short-horizon prediction, weather-aware
// prediction, 24h blend). Panels load and fail independently.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"telemetry-dashboard/internal/backend"
	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

// Defaults mirror the backend's own parameter defaults.
const (
	DefaultHorizonSeconds  = 3600.0
	DefaultBlendFactor     = 0.5
	DefaultForecastDays    = 7
	DefaultDataLimit       = 200
	DefaultPredictionLimit = 30
)

// The backend validates each endpoint's limit separately: the two per-device
// prediction endpoints accept 2..100, analysis up to 500 and the 24h blend
// up to 200. Exceeding a cap is a validation rejection, not a truncation.
const (
	minPredictionLimit   = 2
	maxPredictionLimit   = 100
	maxAnalysisDataLimit = 500
	maxBlendDataLimit    = 200
)

// Status is the lifecycle phase of a single panel.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Backend is the slice of the monitoring API the orchestrator consumes.
type Backend interface {
	CurrentWeather(ctx context.Context, lat, lon float64, city string) (*backend.CurrentWeather, error)
	Forecast(ctx context.Context, lat, lon float64, city string, days int) (*backend.Forecast, error)
	WeatherAnalysis(ctx context.Context, lat, lon float64, city string, limitData int) (*backend.WeatherAnalysis, error)
	DevicePrediction(ctx context.Context, deviceID string, horizonSeconds float64, limit int) (*backend.DevicePrediction, error)
	WeatherAwarePrediction(ctx context.Context, deviceID string, lat, lon float64, city string, horizonSeconds float64, limit int, blendFactor float64) (*backend.WeatherAwarePrediction, error)
	Prediction24h(ctx context.Context, lat, lon float64, city, deviceID string, blendFactor float64, limit int) (*backend.Prediction24h, error)
}

// PanelSnapshot is the externally visible state of one panel.
type PanelSnapshot struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Panels is a point-in-time view of all six panels.
type Panels struct {
	CurrentWeather PanelSnapshot `json:"current_weather"`
	Forecast       PanelSnapshot `json:"forecast"`
	Analysis       PanelSnapshot `json:"analysis"`
	DevicePred     PanelSnapshot `json:"device_prediction"`
	WeatherAware   PanelSnapshot `json:"weather_aware"`
	Blended        PanelSnapshot `json:"prediction_24h"`
}

// panel tracks one independent request lifecycle. The generation counter
// ensures a response for a superseded request never lands.
type panel[T any] struct {
	mu     sync.Mutex
	gen    uint64
	status Status
	data   *T
	errMsg string
}

func (p *panel[T]) begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.status = StatusLoading

	return p.gen
}

func (p *panel[T]) complete(gen uint64, data *T, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}

	if err != nil {
		p.status = StatusError
		p.data = nil
		p.errMsg = panelError(err)

		return
	}

	p.status = StatusSuccess
	p.data = data
	p.errMsg = ""
}

func (p *panel[T]) snapshot() PanelSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := p.status
	if status == "" {
		status = StatusIdle
	}

	snap := PanelSnapshot{Status: status, Error: p.errMsg}
	if p.data != nil {
		snap.Data = *p.data
	}

	return snap
}

func (p *panel[T]) value() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.data
}

func panelError(err error) string {
	if errors.Is(err, backend.ErrNotFound) {
		return "no data for this selection"
	}

	return "request failed"
}

// Options configures an Orchestrator.
type Options struct {
	Backend      Backend
	Window       *telemetry.Window
	ForecastDays int
	// DataLimit is the sample depth for analysis and the 24h blend.
	DataLimit int
	// PredictionLimit is the sample depth for the per-device prediction
	// endpoints, which accept at most 100.
	PredictionLimit int
}

// Orchestrator owns panel state and fans requests out to the backend.
type Orchestrator struct {
	l            *slog.Logger
	backend      Backend
	window       *telemetry.Window
	forecastDays int
	dataLimit    int
	predictLimit int

	mu   sync.Mutex
	city string
	lat  float64
	lon  float64

	weather      panel[backend.CurrentWeather]
	forecast     panel[backend.Forecast]
	analysis     panel[backend.WeatherAnalysis]
	devicePred   panel[backend.DevicePrediction]
	weatherAware panel[backend.WeatherAwarePrediction]
	blended      panel[backend.Prediction24h]
}

func NewOrchestrator(l *slog.Logger, opts Options) (*Orchestrator, error) {
	if opts.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if opts.Window == nil {
		return nil, errors.New("window is required")
	}

	days := opts.ForecastDays
	if days <= 0 {
		days = DefaultForecastDays
	}

	limit := opts.DataLimit
	if limit <= 0 {
		limit = DefaultDataLimit
	}

	predictLimit := opts.PredictionLimit
	if predictLimit <= 0 {
		predictLimit = DefaultPredictionLimit
	}
	predictLimit = min(max(predictLimit, minPredictionLimit), maxPredictionLimit)

	return &Orchestrator{
		l:            l.With(slog.String("component", "predict")),
		backend:      opts.Backend,
		window:       opts.Window,
		forecastDays: days,
		dataLimit:    limit,
		predictLimit: predictLimit,
	}, nil
}

// SetCity switches the selected location and refreshes the three
// location-keyed panels. Device panels keep their last result until the
// operator submits again.
func (o *Orchestrator) SetCity(city string, lat, lon float64) {
	o.mu.Lock()
	o.city = city
	o.lat = lat
	o.lon = lon
	o.mu.Unlock()

	o.RefreshLocation()
}

// City returns the currently selected location.
func (o *Orchestrator) City() (string, float64, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.city, o.lat, o.lon
}

// RefreshLocation re-fetches the location-keyed panels concurrently.
func (o *Orchestrator) RefreshLocation() {
	o.mu.Lock()
	city, lat, lon := o.city, o.lat, o.lon
	o.mu.Unlock()

	weatherGen := o.weather.begin()
	forecastGen := o.forecast.begin()
	analysisGen := o.analysis.begin()

	go func() {
		data, err := o.backend.CurrentWeather(context.Background(), lat, lon, city)
		o.logPanelError("current weather", err)
		o.weather.complete(weatherGen, data, err)
	}()

	go func() {
		data, err := o.backend.Forecast(context.Background(), lat, lon, city, o.forecastDays)
		o.logPanelError("forecast", err)
		o.forecast.complete(forecastGen, data, err)
	}()

	go func() {
		data, err := o.backend.WeatherAnalysis(context.Background(), lat, lon, city, min(o.dataLimit, maxAnalysisDataLimit))
		o.logPanelError("weather analysis", err)
		o.analysis.complete(analysisGen, data, err)
	}()
}

// SubmitPredictions triggers the three device-keyed panels for the given
// device. Each panel succeeds or fails on its own.
//
// A negative blendFactor means "use the default"; an explicit 0 is a valid
// request for a pure-weather blend.
func (o *Orchestrator) SubmitPredictions(deviceID string, horizonSeconds, blendFactor float64) error {
	if deviceID == "" {
		return errors.New("device id is required")
	}

	if horizonSeconds <= 0 {
		horizonSeconds = DefaultHorizonSeconds
	}
	if blendFactor < 0 || blendFactor > 1 {
		blendFactor = DefaultBlendFactor
	}

	o.mu.Lock()
	city, lat, lon := o.city, o.lat, o.lon
	o.mu.Unlock()

	devGen := o.devicePred.begin()
	awareGen := o.weatherAware.begin()
	blendGen := o.blended.begin()

	go func() {
		data, err := o.backend.DevicePrediction(context.Background(), deviceID, horizonSeconds, o.predictLimit)
		o.logPanelError("device prediction", err)
		o.devicePred.complete(devGen, data, err)
	}()

	go func() {
		data, err := o.backend.WeatherAwarePrediction(context.Background(), deviceID, lat, lon, city, horizonSeconds, o.predictLimit, blendFactor)
		o.logPanelError("weather-aware prediction", err)
		o.weatherAware.complete(awareGen, data, err)
	}()

	go func() {
		data, err := o.backend.Prediction24h(context.Background(), lat, lon, city, deviceID, blendFactor, min(o.dataLimit, maxBlendDataLimit))
		o.logPanelError("24h prediction", err)
		o.blended.complete(blendGen, data, err)
	}()

	return nil
}

// DeviceCandidates lists device ids the operator can submit predictions
// for: devices named by the latest weather analysis first, then devices
// seen in the sample window that the analysis missed.
func (o *Orchestrator) DeviceCandidates() []string {
	var out []string

	if analysis := o.analysis.value(); analysis != nil {
		for _, d := range analysis.Devices {
			out = append(out, d.DeviceID)
		}
	}

	for _, id := range o.window.DeviceIDs() {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}

// Snapshot returns the state of all six panels.
func (o *Orchestrator) Snapshot() Panels {
	return Panels{
		CurrentWeather: o.weather.snapshot(),
		Forecast:       o.forecast.snapshot(),
		Analysis:       o.analysis.snapshot(),
		DevicePred:     o.devicePred.snapshot(),
		WeatherAware:   o.weatherAware.snapshot(),
		Blended:        o.blended.snapshot(),
	}
}

func (o *Orchestrator) logPanelError(name string, err error) {
	if err == nil {
		return
	}

	o.l.Warn(fmt.Sprintf("%s request failed", name), utils.ErrAttr(err))
}
