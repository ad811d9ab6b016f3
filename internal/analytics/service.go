// Package analytics composes hazard and alert store results into
// summary, trend, and heatmap views. It only reads.
package analytics

import (
	"context"
	"time"

	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/hazard"
)

// Trend window bounds in days.
const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
)

// HazardStats is the slice of the hazard repository the facade reads.
type HazardStats interface {
	Count(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (map[string]int, error)
	CountByDay(ctx context.Context, since time.Time) ([]hazard.DayCount, error)
	Heatmap(ctx context.Context) ([]hazard.Cell, error)
}

// AlertStats is the slice of the alert repository the facade reads.
type AlertStats interface {
	CountActive(ctx context.Context) (int, error)
}

// VerificationSource is the optional external verification collaborator.
// When absent, summaries report zero verified hazards.
type VerificationSource interface {
	CountDistinctVerifiedHazards(ctx context.Context) (int, error)
}

// Service provides the read-only aggregation facade.
type Service struct {
	hazards      HazardStats
	alerts       AlertStats
	verification VerificationSource
}

// ServiceConfig holds the collaborators of the analytics service.
// Verification may be nil.
type ServiceConfig struct {
	Hazards      HazardStats
	Alerts       AlertStats
	Verification VerificationSource
}

// NewService creates a new analytics service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		hazards:      cfg.Hazards,
		alerts:       cfg.Alerts,
		verification: cfg.Verification,
	}
}

// Summary returns the hazard total, the count of unacknowledged alerts,
// and the count of distinct verified hazards (zero without a
// verification collaborator).
func (s *Service) Summary(ctx context.Context) (*models.AnalyticsSummary, error) {
	total, err := s.hazards.Count(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.alerts.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	verified := 0
	if s.verification != nil {
		verified, err = s.verification.CountDistinctVerifiedHazards(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &models.AnalyticsSummary{
		TotalHazards:  total,
		ActiveAlerts:  active,
		VerifiedCount: verified,
	}, nil
}

// Trends returns all-time hazard counts by type and per-day counts over
// the trailing window of the given number of days, ascending by date.
func (s *Service) Trends(ctx context.Context, days int) (*models.HazardTrends, error) {
	if days < 1 || days > MaxTrendDays {
		return nil, &ValidationError{Errors: []models.FieldError{
			{Field: "days", Message: "must be between 1 and 365"},
		}}
	}

	byType, err := s.hazards.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	byDay, err := s.hazards.CountByDay(ctx, since)
	if err != nil {
		return nil, err
	}

	dayCounts := make([]models.DayCount, 0, len(byDay))
	for _, d := range byDay {
		dayCounts = append(dayCounts, models.DayCount{Date: d.Date, Count: d.Count})
	}

	return &models.HazardTrends{
		HazardsByType: byType,
		HazardsByDay:  dayCounts,
	}, nil
}

// Heatmap returns the occupied spatial bins with their hazard counts.
func (s *Service) Heatmap(ctx context.Context) ([]models.HeatmapCell, error) {
	cells, err := s.hazards.Heatmap(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.HeatmapCell, 0, len(cells))
	for _, c := range cells {
		result = append(result, models.HeatmapCell{Lat: c.Lat, Lon: c.Lon, Count: c.Count})
	}

	return result, nil
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
