// Package telemetry holds the device sample model and the bounded in-memory
// window the dashboard renders from.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sample is one timestamped telemetry reading from a device. Metric fields
// are optional: sensor-type producers report temperature/humidity while
// end-device producers report cpu/memory/disk, and nothing enforces a
// particular subset.
type Sample struct {
	DeviceID      string   `json:"device_id"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
	CPU           *float64 `json:"cpu,omitempty"`
	MemoryPercent *float64 `json:"memory_percent,omitempty"`
	DiskPercent   *float64 `json:"disk_percent,omitempty"`
	Status        *string  `json:"status,omitempty"`
	// ISO-8601 instant, kept verbatim as the ordering/deduplication key
	Timestamp string  `json:"timestamp"`
	EventType *string `json:"event_type,omitempty"`
}

var (
	ErrMissingDeviceID  = errors.New("sample is missing device_id")
	ErrMissingTimestamp = errors.New("sample is missing timestamp")
)

// DecodeSample parses and validates a push-channel payload. Payloads without
// a device_id and timestamp are rejected so downstream code never sees an
// unchecked shape. Unknown fields are tolerated.
func DecodeSample(payload []byte) (Sample, error) {
	var s Sample

	if err := json.Unmarshal(payload, &s); err != nil {
		return Sample{}, fmt.Errorf("malformed sample payload: %w", err)
	}

	if s.DeviceID == "" {
		return Sample{}, ErrMissingDeviceID
	}

	if s.Timestamp == "" {
		return Sample{}, ErrMissingTimestamp
	}

	return s, nil
}
