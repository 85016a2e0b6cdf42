// Package backend is the REST client for the platform services: device
// management, monitoring samples, weather context and predictions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

// RequestTimeout bounds every REST call. A timed-out call is treated like
// any other transport failure.
const RequestTimeout = 15 * time.Second

// ErrNotFound marks 404 responses so callers can show a distinct
// "not found" message instead of a generic failure.
var ErrNotFound = errors.New("not found")

// Client talks to the platform REST API. A bearer credential is attached
// when present; its absence is not an error since some endpoints are open.
type Client struct {
	l       *slog.Logger
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a REST client for the given base URL.
func NewClient(l *slog.Logger, baseURL, token string) *Client {
	return &Client{
		l:       l.With(slog.String("component", "backend-client")),
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: RequestTimeout},
	}
}

// ListDevices returns all managed devices.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var out []Device
	return out, c.get(ctx, "/devices/", nil, &out)
}

// GetDevice returns one device by id.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	var out Device
	if err := c.get(ctx, "/devices/"+url.PathEscape(deviceID), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CreateDevice registers a new device.
func (c *Client) CreateDevice(ctx context.Context, req DeviceRequest) (*Device, error) {
	var out Device
	if err := c.do(ctx, http.MethodPost, "/devices/", nil, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// UpdateDevice updates an existing device.
func (c *Client) UpdateDevice(ctx context.Context, deviceID string, req DeviceRequest) (*Device, error) {
	var out Device
	if err := c.do(ctx, http.MethodPut, "/devices/"+url.PathEscape(deviceID), nil, req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// DeleteDevice removes a device.
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/devices/"+url.PathEscape(deviceID), nil, nil, nil)
}

// PostDeviceData pushes one reading through the device-management service.
func (c *Client) PostDeviceData(ctx context.Context, deviceID string, sample telemetry.Sample) error {
	return c.do(ctx, http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/data", nil, sample, nil)
}

// ListSamples fetches the latest samples across all devices, newest first.
func (c *Client) ListSamples(ctx context.Context, limit int) ([]telemetry.Sample, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}

	var out []telemetry.Sample
	return out, c.get(ctx, "/monitoring/data", q, &out)
}

// DeviceSamples fetches the latest samples for one device. The service
// returns them oldest first; callers decide whether to reverse.
func (c *Client) DeviceSamples(ctx context.Context, deviceID string, limit int) ([]telemetry.Sample, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}

	var out []telemetry.Sample
	return out, c.get(ctx, "/monitoring/data/"+url.PathEscape(deviceID), q, &out)
}

// DeviceSamplesRange fetches samples for one device within a time range.
func (c *Client) DeviceSamplesRange(ctx context.Context, deviceID string, start, end time.Time) ([]telemetry.Sample, error) {
	q := url.Values{
		"start_time": {start.UTC().Format(time.RFC3339)},
		"end_time":   {end.UTC().Format(time.RFC3339)},
	}

	var out []telemetry.Sample
	return out, c.get(ctx, "/monitoring/data/"+url.PathEscape(deviceID)+"/range", q, &out)
}

// DeviceLatest fetches the most recent sample for one device.
func (c *Client) DeviceLatest(ctx context.Context, deviceID string) (*telemetry.Sample, error) {
	var out telemetry.Sample
	if err := c.get(ctx, "/monitoring/data/"+url.PathEscape(deviceID)+"/latest", nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CurrentWeather fetches current conditions for a location.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64, city string) (*CurrentWeather, error) {
	q := locationValues(lat, lon, city)

	var out CurrentWeather
	if err := c.get(ctx, "/monitoring/weather/current", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Forecast fetches the daily and hourly forecast for a location.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, city string, days int) (*Forecast, error) {
	q := locationValues(lat, lon, city)
	q.Set("days", strconv.Itoa(days))

	var out Forecast
	if err := c.get(ctx, "/monitoring/weather/forecast", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// SearchCities queries the backend geocoding endpoint.
func (c *Client) SearchCities(ctx context.Context, query string, count int) ([]CitySuggestion, error) {
	q := url.Values{"q": {query}, "count": {strconv.Itoa(count)}}

	var out []CitySuggestion
	return out, c.get(ctx, "/monitoring/weather/search-city", q, &out)
}

// WeatherAnalysis compares current weather with recent sensor readings.
func (c *Client) WeatherAnalysis(ctx context.Context, lat, lon float64, city string, limitData int) (*WeatherAnalysis, error) {
	q := locationValues(lat, lon, city)
	q.Set("limit_data", strconv.Itoa(limitData))

	var out WeatherAnalysis
	if err := c.get(ctx, "/monitoring/weather/analysis", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// DevicePrediction fetches the short-horizon prediction for one device.
func (c *Client) DevicePrediction(ctx context.Context, deviceID string, horizonSeconds float64, limit int) (*DevicePrediction, error) {
	q := url.Values{
		"horizon_seconds": {formatFloat(horizonSeconds)},
		"limit":           {strconv.Itoa(limit)},
	}

	var out DevicePrediction
	if err := c.get(ctx, "/monitoring/data/"+url.PathEscape(deviceID)+"/predict", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// WeatherAwarePrediction fetches the forecast-anchored device prediction.
func (c *Client) WeatherAwarePrediction(ctx context.Context, deviceID string, lat, lon float64, city string, horizonSeconds float64, limit int, blendFactor float64) (*WeatherAwarePrediction, error) {
	q := locationValues(lat, lon, city)
	q.Set("horizon_seconds", formatFloat(horizonSeconds))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("blend_factor", formatFloat(blendFactor))

	var out WeatherAwarePrediction
	if err := c.get(ctx, "/monitoring/data/"+url.PathEscape(deviceID)+"/predict-weather-aware", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Prediction24h fetches the 24-hour blended prediction.
func (c *Client) Prediction24h(ctx context.Context, lat, lon float64, city, deviceID string, blendFactor float64, limit int) (*Prediction24h, error) {
	q := locationValues(lat, lon, city)
	q.Set("device_id", deviceID)
	q.Set("blend_factor", formatFloat(blendFactor))
	q.Set("limit", strconv.Itoa(limit))

	var out Prediction24h
	if err := c.get(ctx, "/monitoring/weather/prediction-24h", q, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader

	if body != nil {
		data, err := utils.ToJSON(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request body: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}

	defer utils.LogOnError(c.l, resp.Body.Close, "failed to close response body")

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := decodeResponse(data, out); err != nil {
		return fmt.Errorf("%s %s returned unexpected body: %w", method, path, err)
	}

	return nil
}

// decodeResponse tolerates unknown fields: the services add fields over
// time and the client only cares about the ones it models.
func decodeResponse(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

func locationValues(lat, lon float64, city string) url.Values {
	return url.Values{
		"lat":  {formatFloat(lat)},
		"lon":  {formatFloat(lon)},
		"city": {city},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
