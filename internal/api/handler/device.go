package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/api/response"
	"github.com/roadsignal/roadsignal/internal/auth"
	"github.com/roadsignal/roadsignal/internal/device"
)

// DeviceHandler handles device registry endpoints.
type DeviceHandler struct {
	devices *device.Service
	tokens  *auth.TokenService
}

// NewDeviceHandler creates a new DeviceHandler. The token service is
// optional; without it registration responses omit the access token.
func NewDeviceHandler(devices *device.Service, tokens *auth.TokenService) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
		tokens:  tokens,
	}
}

// RegisterDevice handles POST /v1/devices/register - register a device
// or update an existing registration.
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	registered, err := h.devices.Register(r.Context(), &input)
	if err != nil {
		var vErr *device.ValidationError
		if errors.As(err, &vErr) {
			response.Unprocessable(w, r, "validation error", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to register device")
		return
	}

	result := models.DeviceRegistered{Device: *registered}
	if h.tokens != nil {
		token, _, err := h.tokens.GenerateDeviceToken(registered.DeviceID)
		if err != nil {
			response.InternalError(w, r, "failed to issue access token")
			return
		}
		result.AccessToken = token
	}

	response.JSON(w, r, http.StatusOK, result)
}

// GetDevice handles GET /v1/devices/{deviceId}.
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	found, err := h.devices.GetByExternalID(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			response.NotFound(w, r, "device not found")
			return
		}
		response.InternalError(w, r, "failed to fetch device")
		return
	}

	response.JSON(w, r, http.StatusOK, found)
}

// Heartbeat handles POST /v1/devices/{deviceId}/heartbeat - refresh the
// device's liveness timestamps.
func (h *DeviceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	updated, err := h.devices.Heartbeat(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			response.NotFound(w, r, "device not found")
			return
		}
		response.InternalError(w, r, "failed to record heartbeat")
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}

// GetConfig handles GET /v1/devices/{deviceId}/config - fetch the
// device configuration, creating defaults on first access.
func (h *DeviceHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	cfg, err := h.devices.GetOrCreateConfig(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			response.NotFound(w, r, "device not found")
			return
		}
		response.InternalError(w, r, "failed to fetch device config")
		return
	}

	response.JSON(w, r, http.StatusOK, cfg)
}
