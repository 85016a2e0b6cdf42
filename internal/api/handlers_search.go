package api

import (
	"errors"
	"net/http"
	"strings"

	"telemetry-dashboard/internal/search"
)

func (h *Handler) SearchState(w http.ResponseWriter, r *http.Request) error {
	RespondJSON(w, r, http.StatusOK, h.search.State())

	return nil
}

// SearchQuery records a keystroke; the suggestion lookup happens after the
// settle period and lands in the state returned by SearchState.
func (h *Handler) SearchQuery(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[SearchQueryRequest](r)
	if err != nil {
		return err
	}

	h.search.SetQuery(req.Query)

	RespondJSON(w, r, http.StatusAccepted, h.search.State())

	return nil
}

// SearchCommit selects the city driving the weather panels. A request with
// coordinates (a picked suggestion) commits directly; free text is resolved
// through the search sources first.
func (h *Handler) SearchCommit(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[SearchCommitRequest](r)
	if err != nil {
		return err
	}

	city := strings.TrimSpace(req.Name)
	var lat, lon float64

	switch {
	case req.Latitude != nil && req.Longitude != nil && city != "":
		lat, lon = *req.Latitude, *req.Longitude

	case strings.TrimSpace(req.Query) != "":
		match, serr := h.search.Submit(r.Context(), req.Query)
		if serr != nil {
			if errors.Is(serr, search.ErrNoMatch) {
				return NewError(http.StatusNotFound, "No matching city")
			}

			return serr
		}
		city, lat, lon = match.Name, match.Latitude, match.Longitude

	default:
		return NewError(http.StatusBadRequest, "Provide either a query or a named suggestion with coordinates")
	}

	h.predict.SetCity(city, lat, lon)
	h.search.Clear()

	RespondJSON(w, r, http.StatusOK, SearchCommitResponse{
		City:      city,
		Latitude:  lat,
		Longitude: lon,
	})

	return nil
}
