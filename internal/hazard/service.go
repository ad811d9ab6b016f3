package hazard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/device"
)

// List pagination bounds.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// DeviceRegistry resolves caller-supplied device ids, creating unknown
// devices on first reference.
type DeviceRegistry interface {
	Ensure(ctx context.Context, externalID string) (*device.Device, error)
}

// Notifier relays newly created hazards to the external transport. The
// call must never block hazard creation; implementations publish off the
// write path and swallow transport failures.
type Notifier interface {
	HazardCreated(id, hazardType string, lat, lon float64, ts time.Time)
}

// AlertCascade removes alerts referencing a deleted hazard. The
// PostgreSQL store also enforces this with foreign keys; the explicit
// call keeps the in-memory wiring consistent.
type AlertCascade interface {
	DeleteByHazard(ctx context.Context, hazardID string) error
}

// Service provides hazard store operations.
type Service struct {
	repo     Repository
	devices  DeviceRegistry
	notifier Notifier
	alerts   AlertCascade
	logger   zerolog.Logger
}

// ServiceConfig holds the collaborators of the hazard service. Notifier
// and Alerts are optional.
type ServiceConfig struct {
	Repository Repository
	Devices    DeviceRegistry
	Notifier   Notifier
	Alerts     AlertCascade
	Logger     zerolog.Logger
}

// NewService creates a new hazard service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:     cfg.Repository,
		devices:  cfg.Devices,
		notifier: cfg.Notifier,
		alerts:   cfg.Alerts,
		logger:   cfg.Logger,
	}
}

// Create validates and persists a hazard report, auto-registering the
// reporting device if it is unknown. The notifier is invoked after the
// write and cannot fail it.
func (s *Service) Create(ctx context.Context, input *models.HazardCreateRequest) (*models.Hazard, error) {
	if fieldErrors := s.validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	reporter, err := s.devices.Ensure(ctx, input.DeviceID)
	if err != nil {
		return nil, err
	}

	hazard := &Hazard{
		ID:         "hz_" + uuid.New().String(),
		HazardType: input.HazardType,
		Severity:   input.Severity,
		Confidence: input.Confidence,
		Lat:        input.Lat,
		Lon:        input.Lon,
		Ts:         time.Now().UTC(),
		DeviceKey:  reporter.ID,
		DeviceID:   reporter.ExternalID,
	}

	if err := s.repo.Create(ctx, hazard); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("hazard_id", hazard.ID).
		Str("hazard_type", hazard.HazardType).
		Str("device_id", hazard.DeviceID).
		Msg("hazard created")

	if s.notifier != nil {
		s.notifier.HazardCreated(hazard.ID, hazard.HazardType, hazard.Lat, hazard.Lon, hazard.Ts)
	}

	result := toAPIHazard(hazard)
	return &result, nil
}

// Get retrieves a hazard by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Hazard, error) {
	hazard, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := toAPIHazard(hazard)
	return &result, nil
}

// Nearby returns all hazards within radiusM meters great-circle distance
// of the given point, newest first.
func (s *Service) Nearby(ctx context.Context, lat, lon, radiusM float64) ([]models.Hazard, error) {
	var errs []models.FieldError
	errs = append(errs, validatePoint(lat, lon)...)
	if radiusM <= 0 {
		errs = append(errs, models.FieldError{Field: "radius_m", Message: "must be greater than 0"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	hazards, err := s.repo.Nearby(ctx, lat, lon, radiusM)
	if err != nil {
		return nil, err
	}

	return toAPIHazards(hazards), nil
}

// List returns hazards matching the filter, newest first. A zero limit
// defaults to DefaultListLimit.
func (s *Service) List(ctx context.Context, filter Filter, opts ListOptions) ([]models.Hazard, error) {
	if opts.Limit == 0 {
		opts.Limit = DefaultListLimit
	}

	if fieldErrors := validateListInput(filter, opts); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	hazards, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	return toAPIHazards(hazards), nil
}

// Delete removes a hazard and cascades to its alerts. Returns false if
// the hazard does not exist.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if s.alerts != nil {
		if err := s.alerts.DeleteByHazard(ctx, id); err != nil {
			return true, err
		}
	}

	return true, nil
}

func (s *Service) validateCreateInput(input *models.HazardCreateRequest) []models.FieldError {
	var errs []models.FieldError

	errs = append(errs, validatePoint(input.Lat, input.Lon)...)

	if input.HazardType == "" {
		errs = append(errs, models.FieldError{Field: "hazard_type", Message: "is required"})
	}
	if input.DeviceID == "" {
		errs = append(errs, models.FieldError{Field: "device_id", Message: "is required"})
	}
	if input.Severity < 0 || input.Severity > 1 {
		errs = append(errs, models.FieldError{Field: "severity", Message: "must be between 0 and 1"})
	}
	if input.Confidence < 0 || input.Confidence > 1 {
		errs = append(errs, models.FieldError{Field: "confidence", Message: "must be between 0 and 1"})
	}

	return errs
}

func validateListInput(filter Filter, opts ListOptions) []models.FieldError {
	var errs []models.FieldError

	if opts.Skip < 0 {
		errs = append(errs, models.FieldError{Field: "skip", Message: "must be at least 0"})
	}
	if opts.Limit < 1 || opts.Limit > MaxListLimit {
		errs = append(errs, models.FieldError{Field: "limit", Message: "must be between 1 and 1000"})
	}
	if filter.SeverityMin != nil && (*filter.SeverityMin < 0 || *filter.SeverityMin > 1) {
		errs = append(errs, models.FieldError{Field: "severity_min", Message: "must be between 0 and 1"})
	}
	if filter.SeverityMax != nil && (*filter.SeverityMax < 0 || *filter.SeverityMax > 1) {
		errs = append(errs, models.FieldError{Field: "severity_max", Message: "must be between 0 and 1"})
	}
	if filter.SeverityMin != nil && filter.SeverityMax != nil && *filter.SeverityMin > *filter.SeverityMax {
		errs = append(errs, models.FieldError{Field: "severity_min", Message: "must not exceed severity_max"})
	}
	if filter.Start != nil && filter.End != nil && filter.Start.After(*filter.End) {
		errs = append(errs, models.FieldError{Field: "start_date", Message: "must not be after end_date"})
	}

	return errs
}

func validatePoint(lat, lon float64) []models.FieldError {
	var errs []models.FieldError

	if lat < -90 || lat > 90 {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90"})
	}
	if lon < -180 || lon > 180 {
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be between -180 and 180"})
	}

	return errs
}

// toAPIHazard converts a domain Hazard to an API Hazard.
func toAPIHazard(h *Hazard) models.Hazard {
	return models.Hazard{
		ID:         h.ID,
		HazardType: h.HazardType,
		Severity:   h.Severity,
		Confidence: h.Confidence,
		Lat:        h.Lat,
		Lon:        h.Lon,
		Ts:         models.Timestamp(h.Ts),
		DeviceID:   h.DeviceID,
	}
}

func toAPIHazards(hazards []*Hazard) []models.Hazard {
	items := make([]models.Hazard, 0, len(hazards))
	for _, h := range hazards {
		items = append(items, toAPIHazard(h))
	}
	return items
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
