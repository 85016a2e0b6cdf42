package api

import "telemetry-dashboard/internal/telemetry"

// ErrorResponse is the unified error response type. It supports both simple
// errors (just message) and validation errors (message + field errors).
//
//nolint:errname // ErrorResponse is an API response type, not a traditional error
type ErrorResponse struct {
	// HTTP status code (internal only, not sent to client)
	StatusCode int `json:"-"`
	// Request ID for tracking
	RequestID string `json:"requestID"`
	// High-level error message
	Message string `json:"message"`
	// Field-level validation errors
	Errors map[string]string `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// AddError adds a field-level error (builder pattern).
func (e *ErrorResponse) AddError(field, message string) *ErrorResponse {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}

	e.Errors[field] = message

	return e
}

// PingResponse is the response to a ping request.
type PingResponse struct {
	Message string     `json:"message"`
	Status  PingStatus `json:"status"`
}

// PingStatus represents the status of a ping request.
type PingStatus string

const (
	PingStatusOK    PingStatus = "OK"
	PingStatusError PingStatus = "ERROR"
)

// HealthResponse reports readiness of the stream and the sample window.
type HealthResponse struct {
	Stream  bool `json:"stream"`
	Samples int  `json:"samples"`
}

// ConnectivityResponse is the live stream status badge.
type ConnectivityResponse struct {
	Connected bool    `json:"connected"`
	LastEvent *string `json:"last_event,omitempty"`
}

// SamplesResponse wraps the sample window projection.
type SamplesResponse struct {
	Order   string             `json:"order"`
	Count   int                `json:"count"`
	Samples []telemetry.Sample `json:"samples"`
}

// FilterRequest and FilterResponse carry the query filter over the wire.
// Range bounds are RFC 3339 timestamps; empty strings mean unset.
type FilterRequest struct {
	DeviceID     string `json:"device_id"`
	RangeEnabled bool   `json:"range_enabled"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
}

type FilterResponse struct {
	DeviceID     string `json:"device_id"`
	RangeEnabled bool   `json:"range_enabled"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Mode         string `json:"mode"`
}

// SearchQueryRequest carries a typeahead keystroke.
type SearchQueryRequest struct {
	Query string `json:"query"`
}

// SearchCommitRequest selects a city, either by explicit coordinates (a
// picked suggestion) or by free text to resolve.
type SearchCommitRequest struct {
	Query     string   `json:"query,omitempty"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// SearchCommitResponse echoes the committed city.
type SearchCommitResponse struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PredictionRequest triggers the device-keyed prediction panels. A nil
// blend factor means the backend default; 0 is a valid pure-weather blend.
type PredictionRequest struct {
	DeviceID       string   `json:"device_id"`
	HorizonSeconds float64  `json:"horizon_seconds,omitempty"`
	BlendFactor    *float64 `json:"blend_factor,omitempty"`
}

// PredictionDevicesResponse lists device ids eligible for prediction.
type PredictionDevicesResponse struct {
	Devices []string `json:"devices"`
}
