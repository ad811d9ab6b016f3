package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/roadsignal/roadsignal/internal/analytics"
	"github.com/roadsignal/roadsignal/internal/api/response"
)

// AnalyticsHandler handles analytics endpoints.
type AnalyticsHandler struct {
	analytics *analytics.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: svc,
	}
}

// Summary handles GET /v1/analytics/summary - fleet-wide counts.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to compute summary")
		return
	}

	response.JSON(w, r, http.StatusOK, summary)
}

// Trends handles GET /v1/analytics/trends?days=N - hazard counts by type
// and by day over a trailing window.
func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days := analytics.DefaultTrendDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "days must be an integer", nil)
			return
		}
		days = v
	}

	trends, err := h.analytics.Trends(r.Context(), days)
	if err != nil {
		var vErr *analytics.ValidationError
		if errors.As(err, &vErr) {
			response.Unprocessable(w, r, "validation error", vErr.Errors)
			return
		}
		response.InternalError(w, r, "failed to compute trends")
		return
	}

	response.JSON(w, r, http.StatusOK, trends)
}

// Heatmap handles GET /v1/analytics/heatmap - hazard density cells.
func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	cells, err := h.analytics.Heatmap(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to compute heatmap")
		return
	}

	response.JSON(w, r, http.StatusOK, cells)
}
