package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/api/response"
	"github.com/roadsignal/roadsignal/internal/hazard"
)

// HazardHandler handles hazard endpoints.
type HazardHandler struct {
	hazards *hazard.Service
}

// NewHazardHandler creates a new HazardHandler.
func NewHazardHandler(hazards *hazard.Service) *HazardHandler {
	return &HazardHandler{
		hazards: hazards,
	}
}

// CreateHazard handles POST /v1/hazards - report a detected hazard.
func (h *HazardHandler) CreateHazard(w http.ResponseWriter, r *http.Request) {
	var input models.HazardCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	created, err := h.hazards.Create(r.Context(), &input)
	if err != nil {
		var vErr *hazard.ValidationError
		if errors.As(err, &vErr) {
			response.Unprocessable(w, r, "validation error", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to create hazard")
		return
	}

	location := fmt.Sprintf("/v1/hazards/%s", created.ID)
	response.Created(w, r, location, created)
}

// GetHazard handles GET /v1/hazards/{hazardId} - fetch a single hazard.
func (h *HazardHandler) GetHazard(w http.ResponseWriter, r *http.Request) {
	hazardID := chi.URLParam(r, "hazardId")
	if hazardID == "" {
		response.BadRequest(w, r, "hazardId is required", nil)
		return
	}

	found, err := h.hazards.Get(r.Context(), hazardID)
	if err != nil {
		if errors.Is(err, hazard.ErrHazardNotFound) {
			response.NotFound(w, r, "hazard not found")
			return
		}
		response.InternalError(w, r, "failed to fetch hazard")
		return
	}

	response.JSON(w, r, http.StatusOK, found)
}

// NearbyHazards handles GET /v1/hazards/nearby - radius search around a point.
func (h *HazardHandler) NearbyHazards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		response.BadRequest(w, r, "lat must be a number", nil)
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		response.BadRequest(w, r, "lon must be a number", nil)
		return
	}

	radiusM := 500.0
	if raw := q.Get("radius"); raw != "" {
		radiusM, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(w, r, "radius must be a number", nil)
			return
		}
	}

	hazards, err := h.hazards.Nearby(r.Context(), lat, lon, radiusM)
	if err != nil {
		var vErr *hazard.ValidationError
		if errors.As(err, &vErr) {
			response.Unprocessable(w, r, "validation error", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to query nearby hazards")
		return
	}

	response.JSON(w, r, http.StatusOK, hazards)
}

// ListHazards handles GET /v1/hazards - filtered, paginated listing.
func (h *HazardHandler) ListHazards(w http.ResponseWriter, r *http.Request) {
	filter, opts, fieldErrs := parseHazardQuery(r)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	hazards, err := h.hazards.List(r.Context(), filter, opts)
	if err != nil {
		var vErr *hazard.ValidationError
		if errors.As(err, &vErr) {
			response.Unprocessable(w, r, "validation error", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to list hazards")
		return
	}

	response.JSON(w, r, http.StatusOK, hazards)
}

// DeleteHazard handles DELETE /v1/hazards/{hazardId} - remove a hazard
// and its linked alerts. Mounted behind device token auth.
func (h *HazardHandler) DeleteHazard(w http.ResponseWriter, r *http.Request) {
	hazardID := chi.URLParam(r, "hazardId")
	if hazardID == "" {
		response.BadRequest(w, r, "hazardId is required", nil)
		return
	}

	deleted, err := h.hazards.Delete(r.Context(), hazardID)
	if err != nil {
		response.InternalError(w, r, "failed to delete hazard")
		return
	}
	if !deleted {
		response.NotFound(w, r, "hazard not found")
		return
	}

	response.NoContent(w, r)
}

// parseHazardQuery extracts the list filter and pagination options from
// query parameters. Numeric and time parse failures are collected as
// field errors; range validation happens in the service.
func parseHazardQuery(r *http.Request) (hazard.Filter, hazard.ListOptions, []models.FieldError) {
	q := r.URL.Query()

	var filter hazard.Filter
	var opts hazard.ListOptions
	var fieldErrs []models.FieldError

	filter.HazardType = q.Get("hazard_type")

	if raw := q.Get("severity_min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field: "severity_min", Message: "must be a number", Code: "invalid_type",
			})
		} else {
			filter.SeverityMin = &v
		}
	}
	if raw := q.Get("severity_max"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field: "severity_max", Message: "must be a number", Code: "invalid_type",
			})
		} else {
			filter.SeverityMax = &v
		}
	}
	if raw := q.Get("start"); raw != "" {
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field: "start", Message: "must be an RFC3339 timestamp", Code: "invalid_type",
			})
		} else {
			filter.Start = &v
		}
	}
	if raw := q.Get("end"); raw != "" {
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field: "end", Message: "must be an RFC3339 timestamp", Code: "invalid_type",
			})
		} else {
			filter.End = &v
		}
	}
	if raw := q.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field: "skip", Message: "must be an integer", Code: "invalid_type",
			})
		} else {
			opts.Skip = v
		}
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field: "limit", Message: "must be an integer", Code: "invalid_type",
			})
		} else {
			opts.Limit = v
		}
	}

	return filter, opts, fieldErrs
}
