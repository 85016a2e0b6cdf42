package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telemetry-dashboard/internal/backend"
)

// Device handlers proxy the monitoring backend's registry so the dashboard
// is the single surface operators talk to.

func mapBackendError(err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return NewError(http.StatusNotFound, "Device not found")
	}

	return fmt.Errorf("backend request: %w", err)
}

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) error {
	devices, err := h.devices.ListDevices(r.Context())
	if err != nil {
		return mapBackendError(err)
	}

	if devices == nil {
		devices = []backend.Device{}
	}

	RespondJSON(w, r, http.StatusOK, devices)

	return nil
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) error {
	device, err := h.devices.GetDevice(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		return mapBackendError(err)
	}

	RespondJSON(w, r, http.StatusOK, device)

	return nil
}

func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[backend.DeviceRequest](r)
	if err != nil {
		return err
	}

	device, err := h.devices.CreateDevice(r.Context(), req)
	if err != nil {
		return mapBackendError(err)
	}

	RespondJSON(w, r, http.StatusCreated, device)

	return nil
}

func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[backend.DeviceRequest](r)
	if err != nil {
		return err
	}

	device, err := h.devices.UpdateDevice(r.Context(), chi.URLParam(r, "deviceID"), req)
	if err != nil {
		return mapBackendError(err)
	}

	RespondJSON(w, r, http.StatusOK, device)

	return nil
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) error {
	if err := h.devices.DeleteDevice(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		return mapBackendError(err)
	}

	RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}
