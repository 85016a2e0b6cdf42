package api

import (
	"net/http"
	"time"

	"telemetry-dashboard/internal/query"
)

func filterResponse(f query.Filter) FilterResponse {
	resp := FilterResponse{
		DeviceID:     f.DeviceID,
		RangeEnabled: f.RangeEnabled,
		Mode:         string(f.Mode()),
	}

	if !f.Start.IsZero() {
		resp.Start = f.Start.UTC().Format(time.RFC3339)
	}
	if !f.End.IsZero() {
		resp.End = f.End.UTC().Format(time.RFC3339)
	}

	return resp
}

func (h *Handler) GetFilter(w http.ResponseWriter, r *http.Request) error {
	RespondJSON(w, r, http.StatusOK, filterResponse(h.query.Filter()))

	return nil
}

// PutFilter replaces the whole filter. Changing it kicks off a window
// refresh; a half-specified range is accepted and simply not dispatched
// until the other bound arrives.
func (h *Handler) PutFilter(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[FilterRequest](r)
	if err != nil {
		return err
	}

	filter := query.Filter{
		DeviceID:     req.DeviceID,
		RangeEnabled: req.RangeEnabled,
	}

	fieldErrors := map[string]string{}

	if req.Start != "" {
		start, perr := time.Parse(time.RFC3339, req.Start)
		if perr != nil {
			fieldErrors["start"] = "must be an RFC 3339 timestamp"
		}
		filter.Start = start
	}

	if req.End != "" {
		end, perr := time.Parse(time.RFC3339, req.End)
		if perr != nil {
			fieldErrors["end"] = "must be an RFC 3339 timestamp"
		}
		filter.End = end
	}

	if len(fieldErrors) > 0 {
		return NewValidationError(fieldErrors)
	}

	h.query.SetFilter(filter)

	RespondJSON(w, r, http.StatusOK, filterResponse(h.query.Filter()))

	return nil
}

func (h *Handler) RefreshFilter(w http.ResponseWriter, r *http.Request) error {
	h.query.Refresh()

	RespondJSON(w, r, http.StatusAccepted, filterResponse(h.query.Filter()))

	return nil
}
