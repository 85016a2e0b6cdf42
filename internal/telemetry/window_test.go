package telemetry

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"telemetry-dashboard/pkg/utils"
)

func sampleAt(deviceID, timestamp string) Sample {
	return Sample{DeviceID: deviceID, Timestamp: timestamp, Temperature: utils.Ptr(21.5)}
}

func collect(seq func(func(Sample) bool)) []Sample {
	var out []Sample
	seq(func(s Sample) bool {
		out = append(out, s)
		return true
	})
	return out
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	w := NewWindow(10)

	for i := range 500 {
		if rng.Intn(10) == 0 {
			batch := make([]Sample, rng.Intn(30))
			for j := range batch {
				batch[j] = sampleAt("batch", fmt.Sprintf("2025-01-28T10:00:%02dZ", j))
			}
			w.ApplyBatch(batch)
		} else {
			w.ApplyLive(sampleAt("live", fmt.Sprintf("2025-01-28T11:00:%02dZ", i%60)))
		}

		if got := w.Len(); got > 10 {
			t.Fatalf("window length %d exceeds capacity after %d operations", got, i+1)
		}
	}
}

func TestApplyBatchReplacesWholesale(t *testing.T) {
	t.Parallel()

	w := NewWindow(5)
	w.ApplyLive(sampleAt("old", "2025-01-28T09:00:00Z"))

	batch := []Sample{
		sampleAt("a", "2025-01-28T10:00:02Z"),
		sampleAt("a", "2025-01-28T10:00:01Z"),
		sampleAt("a", "2025-01-28T10:00:00Z"),
	}
	w.ApplyBatch(batch)

	got := collect(w.NewestFirst())
	if !slices.Equal(got, batch) {
		t.Errorf("NewestFirst() = %v, want batch contents only", got)
	}
}

func TestChronologicalIsBatchReversed(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			t.Parallel()

			batch := make([]Sample, size)
			for i := range batch {
				batch[i] = sampleAt("dev", fmt.Sprintf("2025-01-28T10:00:%02dZ", size-i))
			}

			w := NewWindow(DefaultCapacity)
			w.ApplyBatch(batch)

			got := collect(w.Chronological())
			want := make([]Sample, size)
			copy(want, batch)
			slices.Reverse(want)

			if !slices.Equal(got, want) {
				t.Errorf("Chronological() = %v, want %v", got, want)
			}
		})
	}
}

func TestLiveSampleIsAlwaysFirst(t *testing.T) {
	t.Parallel()

	w := NewWindow(DefaultCapacity)
	w.ApplyBatch([]Sample{
		sampleAt("dev", "2025-01-28T10:00:05Z"),
		sampleAt("dev", "2025-01-28T10:00:04Z"),
	})

	// Timestamp older than everything in the batch: still a prepend.
	late := sampleAt("dev", "2025-01-28T09:00:00Z")
	w.ApplyLive(late)

	got := collect(w.NewestFirst())
	if len(got) != 3 || got[0] != late {
		t.Errorf("live sample should head the newest-first view, got %v", got)
	}
}

func TestApplyLiveEvictsOldest(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)
	for i := range 5 {
		w.ApplyLive(sampleAt(fmt.Sprintf("dev-%d", i), "2025-01-28T10:00:00Z"))
	}

	got := collect(w.NewestFirst())
	if len(got) != 3 {
		t.Fatalf("Len = %d, want 3", len(got))
	}

	for i, want := range []string{"dev-4", "dev-3", "dev-2"} {
		if got[i].DeviceID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].DeviceID, want)
		}
	}
}

func TestSequencesAreRestartable(t *testing.T) {
	t.Parallel()

	w := NewWindow(DefaultCapacity)
	w.ApplyLive(sampleAt("dev", "2025-01-28T10:00:00Z"))

	seq := w.Chronological()
	first := collect(seq)
	second := collect(seq)

	if !slices.Equal(first, second) {
		t.Errorf("restarted sequence differs: %v vs %v", first, second)
	}
}

func TestDeviceIDs(t *testing.T) {
	t.Parallel()

	w := NewWindow(DefaultCapacity)
	w.ApplyLive(sampleAt("sensor-1", "2025-01-28T10:00:00Z"))
	w.ApplyLive(sampleAt("sensor-2", "2025-01-28T10:00:01Z"))
	w.ApplyLive(sampleAt("sensor-1", "2025-01-28T10:00:02Z"))

	got := w.DeviceIDs()
	want := []string{"sensor-1", "sensor-2"}

	if !slices.Equal(got, want) {
		t.Errorf("DeviceIDs() = %v, want %v", got, want)
	}
}

func TestDecodeSample(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"device_id":"sensor-1","temperature":22.5,"timestamp":"2025-01-28T10:00:00Z"}`,
		},
		{
			name:    "unknown fields tolerated",
			payload: `{"device_id":"sensor-1","timestamp":"2025-01-28T10:00:00Z","data":{"nested":true}}`,
		},
		{
			name:    "missing device_id",
			payload: `{"temperature":22.5,"timestamp":"2025-01-28T10:00:00Z"}`,
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			payload: `{"device_id":"sensor-1","temperature":22.5}`,
			wantErr: true,
		},
		{
			name:    "device_id wrong type",
			payload: `{"device_id":42,"timestamp":"2025-01-28T10:00:00Z"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := DecodeSample([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSample() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && s.DeviceID == "" {
				t.Error("DecodeSample() returned empty device_id for valid payload")
			}
		})
	}
}
