package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nextgendevs/ng-backend/internal/apperr"
	"github.com/nextgendevs/ng-backend/internal/models"
	"github.com/nextgendevs/ng-backend/internal/respond"
	"github.com/nextgendevs/ng-backend/internal/services"
)

type patchDeviceRequest struct {
	Update models.DeviceUpdate `json:"update"`
}

type updatedDevice struct {
	OldDevice models.DeviceCredentials `json:"oldDevice"`
	NewDevice models.DeviceCredentials `json:"newDevice"`
}

type DeviceHandler struct {
	devices *services.DeviceService
}

func NewDeviceHandler(devices *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// List handles GET /api/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, devices)
}

// Nearest handles GET /api/devices/nearest?lat=&long=
func (h *DeviceHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	lat, err := floatQuery(r, "lat")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	long, err := floatQuery(r, "long")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	loc, err := h.devices.NearestLocation(r.Context(), models.Coordinates{Lat: lat, Long: long})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, loc)
}

func floatQuery(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, apperr.InvalidParameter(key, apperr.MsgIsRequired(key))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.InvalidParameter(key, apperr.MsgInvalidType(key, "number"))
	}
	return v, nil
}

func (h *DeviceHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.devices.Credentials(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, creds)
}

func (h *DeviceHandler) PatchCredentials(w http.ResponseWriter, r *http.Request) {
	var req patchDeviceRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	oldDevice, newDevice, err := h.devices.UpdateCredentials(r.Context(), chi.URLParam(r, "deviceId"), req.Update)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, updatedDevice{OldDevice: oldDevice, NewDevice: newDevice})
}

func (h *DeviceHandler) GetMeasurements(w http.ResponseWriter, r *http.Request) {
	m, err := h.devices.Measurements(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

// PostMeasurements handles a submission from an authenticated device
func (h *DeviceHandler) PostMeasurements(w http.ResponseWriter, r *http.Request) {
	var payload models.MeasurementPayload
	if err := respond.Decode(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.devices.Ingest(r.Context(), chi.URLParam(r, "deviceId"), payload); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Measurements updated")
}
