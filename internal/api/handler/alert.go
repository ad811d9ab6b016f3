package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roadsignal/roadsignal/internal/alert"
	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/api/response"
)

// AlertHandler handles alert endpoints.
type AlertHandler struct {
	alerts *alert.Service
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alerts *alert.Service) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
	}
}

// CreateAlert handles POST /v1/alerts - record a local or v2v alert.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.alerts.Create(r.Context(), &input)
	if err != nil {
		var vErr *alert.ValidationError
		if errors.As(err, &vErr) {
			response.Unprocessable(w, r, "validation error", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to create alert")
		return
	}

	location := fmt.Sprintf("/v1/alerts/%s", created.ID)
	response.Created(w, r, location, created)
}

// ListDeviceAlerts handles GET /v1/alerts/device/{deviceId} - alerts
// addressed to or sent by a device. Unknown devices yield an empty list.
func (h *AlertHandler) ListDeviceAlerts(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	alerts, err := h.alerts.ListByDevice(r.Context(), deviceID)
	if err != nil {
		response.InternalError(w, r, "failed to list alerts")
		return
	}

	response.JSON(w, r, http.StatusOK, alerts)
}

// AcknowledgeAlert handles POST /v1/alerts/{alertId}/acknowledge.
// Acknowledging on behalf of a device that is not a party to the alert
// reports not-found rather than revealing the alert exists.
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	if alertID == "" {
		response.BadRequest(w, r, "alertId is required", nil)
		return
	}

	var input models.AlertAcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.DeviceID == "" {
		response.BadRequest(w, r, "device_id is required", []models.FieldError{
			{Field: "device_id", Message: "device_id is required", Code: "required"},
		})
		return
	}

	acked, err := h.alerts.Acknowledge(r.Context(), alertID, input.DeviceID)
	if err != nil {
		if errors.Is(err, alert.ErrAlertNotFound) {
			response.NotFound(w, r, "alert not found")
			return
		}
		response.InternalError(w, r, "failed to acknowledge alert")
		return
	}

	response.JSON(w, r, http.StatusOK, acked)
}

// DeleteAlert handles DELETE /v1/alerts/{alertId}. Mounted behind device
// token auth.
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")
	if alertID == "" {
		response.BadRequest(w, r, "alertId is required", nil)
		return
	}

	deleted, err := h.alerts.Delete(r.Context(), alertID)
	if err != nil {
		response.InternalError(w, r, "failed to delete alert")
		return
	}
	if !deleted {
		response.NotFound(w, r, "alert not found")
		return
	}

	response.NoContent(w, r)
}
