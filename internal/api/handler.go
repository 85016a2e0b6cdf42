package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"telemetry-dashboard/internal/backend"
	"telemetry-dashboard/internal/predict"
	"telemetry-dashboard/internal/query"
	"telemetry-dashboard/internal/search"
	"telemetry-dashboard/internal/telemetry"
)

// Connectivity reports the state of the live telemetry stream.
type Connectivity interface {
	Connected() bool
	LastEvent() time.Time
}

// DeviceService is the slice of the monitoring backend used by the device
// CRUD proxy.
type DeviceService interface {
	ListDevices(ctx context.Context) ([]backend.Device, error)
	GetDevice(ctx context.Context, deviceID string) (*backend.Device, error)
	CreateDevice(ctx context.Context, req backend.DeviceRequest) (*backend.Device, error)
	UpdateDevice(ctx context.Context, deviceID string, req backend.DeviceRequest) (*backend.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error
}

// Handler serves the dashboard API.
type Handler struct {
	l       *slog.Logger
	window  *telemetry.Window
	stream  Connectivity
	query   *query.Controller
	search  *search.Typeahead
	predict *predict.Orchestrator
	devices DeviceService
}

func NewHandler(
	l *slog.Logger,
	window *telemetry.Window,
	stream Connectivity,
	queryCtrl *query.Controller,
	typeahead *search.Typeahead,
	orchestrator *predict.Orchestrator,
	devices DeviceService,
) *Handler {
	return &Handler{
		l:       l.With(slog.String("component", "api")),
		window:  window,
		stream:  stream,
		query:   queryCtrl,
		search:  typeahead,
		predict: orchestrator,
		devices: devices,
	}
}

// Routes builds the full router including middleware.
func (h *Handler) Routes(mw *MiddlewareHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(mw.RequestIDMiddleware)
	r.Use(mw.LoggerMiddleware)
	r.Use(mw.RecoveryMiddleware)

	r.Get("/ping", ErrorHandler(h.Ping))
	r.Get("/health", ErrorHandler(h.Health))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/connectivity", ErrorHandler(h.Connectivity))
		r.Get("/samples", ErrorHandler(h.Samples))

		r.Get("/filter", ErrorHandler(h.GetFilter))
		r.Put("/filter", ErrorHandler(h.PutFilter))
		r.Post("/filter/refresh", ErrorHandler(h.RefreshFilter))

		r.Get("/search", ErrorHandler(h.SearchState))
		r.Put("/search/query", ErrorHandler(h.SearchQuery))
		r.Post("/search/commit", ErrorHandler(h.SearchCommit))

		r.Get("/panels", ErrorHandler(h.Panels))
		r.Post("/predictions", ErrorHandler(h.SubmitPredictions))
		r.Get("/predictions/devices", ErrorHandler(h.PredictionDevices))

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", ErrorHandler(h.ListDevices))
			r.Post("/", ErrorHandler(h.CreateDevice))
			r.Get("/{deviceID}", ErrorHandler(h.GetDevice))
			r.Put("/{deviceID}", ErrorHandler(h.UpdateDevice))
			r.Delete("/{deviceID}", ErrorHandler(h.DeleteDevice))
		})
	})

	return r
}
