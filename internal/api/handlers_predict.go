package api

import (
	"net/http"
)

func (h *Handler) Panels(w http.ResponseWriter, r *http.Request) error {
	RespondJSON(w, r, http.StatusOK, h.predict.Snapshot())

	return nil
}

func (h *Handler) SubmitPredictions(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[PredictionRequest](r)
	if err != nil {
		return err
	}

	if req.DeviceID == "" {
		return NewValidationError(map[string]string{"device_id": "is required"})
	}

	blend := -1.0
	if req.BlendFactor != nil {
		blend = *req.BlendFactor
	}

	if err := h.predict.SubmitPredictions(req.DeviceID, req.HorizonSeconds, blend); err != nil {
		return NewError(http.StatusBadRequest, err.Error())
	}

	RespondJSON(w, r, http.StatusAccepted, h.predict.Snapshot())

	return nil
}

func (h *Handler) PredictionDevices(w http.ResponseWriter, r *http.Request) error {
	devices := h.predict.DeviceCandidates()
	if devices == nil {
		devices = []string{}
	}

	RespondJSON(w, r, http.StatusOK, PredictionDevicesResponse{Devices: devices})

	return nil
}
