package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) error {
	RespondJSON(w, r, http.StatusOK, PingResponse{Message: "Pong", Status: PingStatusOK})

	return nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	resp := HealthResponse{
		Stream:  h.stream.Connected(),
		Samples: h.window.Len(),
	}

	// The dashboard stays useful on REST alone, so a down stream degrades
	// the health report without failing it.
	RespondJSON(w, r, http.StatusOK, resp)

	return nil
}

func (h *Handler) Connectivity(w http.ResponseWriter, r *http.Request) error {
	resp := ConnectivityResponse{Connected: h.stream.Connected()}

	if last := h.stream.LastEvent(); !last.IsZero() {
		resp.LastEvent = utils.Ptr(last.UTC().Format(time.RFC3339))
	}

	RespondJSON(w, r, http.StatusOK, resp)

	return nil
}

// Samples returns the window contents. Default order is newest first;
// order=asc yields the chronological projection used for charting.
func (h *Handler) Samples(w http.ResponseWriter, r *http.Request) error {
	order := r.URL.Query().Get("order")
	if order == "" {
		order = "desc"
	}

	limit := h.window.Len()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return NewError(http.StatusBadRequest, "Invalid limit")
		}
		limit = min(limit, parsed)
	}

	samples := make([]telemetry.Sample, 0, limit)

	switch order {
	case "desc":
		for s := range h.window.NewestFirst() {
			if len(samples) == limit {
				break
			}
			samples = append(samples, s)
		}
	case "asc":
		// A bounded chronological view means the newest samples in time
		// order, so take from the newest end and reverse.
		for s := range h.window.NewestFirst() {
			if len(samples) == limit {
				break
			}
			samples = append(samples, s)
		}
		slices.Reverse(samples)
	default:
		return NewError(http.StatusBadRequest, "Order must be 'asc' or 'desc'")
	}

	RespondJSON(w, r, http.StatusOK, SamplesResponse{
		Order:   order,
		Count:   len(samples),
		Samples: samples,
	})

	return nil
}
