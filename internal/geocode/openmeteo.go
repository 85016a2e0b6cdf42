// Package geocode queries the public Open-Meteo geocoding API. It is the
// unauthenticated fallback behind the backend city search and normalizes
// results into the same CitySuggestion shape.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"telemetry-dashboard/internal/backend"
	"telemetry-dashboard/pkg/utils"
)

// DefaultBaseURL is the public Open-Meteo geocoding endpoint.
const DefaultBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

type searchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   *string `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Client is a thin Open-Meteo geocoding client.
type Client struct {
	l       *slog.Logger
	baseURL string
	http    *http.Client
}

// NewClient creates a geocoding client. An empty baseURL selects the public
// endpoint.
func NewClient(l *slog.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		l:       l.With(slog.String("component", "geocode-client")),
		baseURL: baseURL,
		http:    &http.Client{Timeout: backend.RequestTimeout},
	}
}

// Search returns up to count city suggestions matching query.
// A query with no matches yields an empty list, not an error.
func (c *Client) Search(ctx context.Context, query string, count int) ([]backend.CitySuggestion, error) {
	q := url.Values{
		"name":   {query},
		"count":  {strconv.Itoa(count)},
		"format": {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	defer utils.LogOnError(c.l, resp.Body.Close, "failed to close response body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := decodeBody(resp, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	suggestions := make([]backend.CitySuggestion, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		suggestions = append(suggestions, backend.CitySuggestion{
			Name:      r.Name,
			Country:   r.Country,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}

	return suggestions, nil
}

// decodeBody tolerates unknown fields: the geocoding API returns many more
// attributes than the suggestion shape needs.
func decodeBody(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}
