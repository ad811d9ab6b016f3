package alert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/device"
)

// DeviceRegistry resolves caller-supplied device ids. Ensure creates
// unknown devices on first reference; Lookup never creates.
type DeviceRegistry interface {
	Ensure(ctx context.Context, externalID string) (*device.Device, error)
	Lookup(ctx context.Context, externalID string) (*device.Device, error)
}

// Service provides alert lifecycle operations.
type Service struct {
	repo    Repository
	devices DeviceRegistry
}

// NewService creates a new alert service.
func NewService(repo Repository, devices DeviceRegistry) *Service {
	return &Service{repo: repo, devices: devices}
}

// Create validates and persists a new alert in the sent state,
// auto-registering the sender and, for v2v alerts, the receiver.
func (s *Service) Create(ctx context.Context, input *models.AlertCreateRequest) (*models.Alert, error) {
	if fieldErrors := validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	sender, err := s.devices.Ensure(ctx, input.SenderDeviceID)
	if err != nil {
		return nil, err
	}

	alert := &Alert{
		ID:             "alr_" + uuid.New().String(),
		HazardID:       input.HazardID,
		SenderKey:      sender.ID,
		SenderDeviceID: sender.ExternalID,
		Type:           input.AlertType,
		Status:         models.AlertStatusSent,
		CreatedAt:      time.Now().UTC(),
	}

	if input.ReceiverDeviceID != nil {
		receiver, err := s.devices.Ensure(ctx, *input.ReceiverDeviceID)
		if err != nil {
			return nil, err
		}
		alert.ReceiverKey = &receiver.ID
		alert.ReceiverDeviceID = &receiver.ExternalID
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, err
	}

	result := toAPIAlert(alert)
	return &result, nil
}

// ListByDevice returns alerts sent or received by the device, newest
// first. An unknown device yields an empty list, not an error.
func (s *Service) ListByDevice(ctx context.Context, deviceExternalID string) ([]models.Alert, error) {
	dev, err := s.devices.Lookup(ctx, deviceExternalID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return []models.Alert{}, nil
		}
		return nil, err
	}

	alerts, err := s.repo.ListByDevice(ctx, dev.ID)
	if err != nil {
		return nil, err
	}

	items := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAPIAlert(a))
	}
	return items, nil
}

// Acknowledge marks the alert acknowledged on behalf of the given
// device. It fails closed: an unknown alert, an unknown device, and a
// device that is neither sender nor receiver all yield ErrAlertNotFound.
// Re-acknowledging is safe and returns the original acknowledged_at.
func (s *Service) Acknowledge(ctx context.Context, alertID, deviceExternalID string) (*models.Alert, error) {
	dev, err := s.devices.Lookup(ctx, deviceExternalID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	alert, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if !alert.ownedBy(dev.ID) {
		return nil, ErrAlertNotFound
	}

	if !alert.Acknowledged() {
		alert, err = s.repo.Acknowledge(ctx, alertID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
	}

	result := toAPIAlert(alert)
	return &result, nil
}

// Delete removes an alert. Returns false if it does not exist.
func (s *Service) Delete(ctx context.Context, alertID string) (bool, error) {
	return s.repo.Delete(ctx, alertID)
}

// DeleteByHazard removes all alerts referencing a hazard. Invoked by the
// hazard store when a hazard is deleted.
func (s *Service) DeleteByHazard(ctx context.Context, hazardID string) error {
	return s.repo.DeleteByHazard(ctx, hazardID)
}

func validateCreateInput(input *models.AlertCreateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.SenderDeviceID == "" {
		errs = append(errs, models.FieldError{Field: "sender_device_id", Message: "is required"})
	}

	switch input.AlertType {
	case models.AlertTypeLocal:
		if input.ReceiverDeviceID != nil {
			errs = append(errs, models.FieldError{Field: "receiver_device_id", Message: "must be absent for local alerts"})
		}
	case models.AlertTypeV2V:
		if input.ReceiverDeviceID == nil || *input.ReceiverDeviceID == "" {
			errs = append(errs, models.FieldError{Field: "receiver_device_id", Message: "is required for v2v alerts"})
		}
	default:
		errs = append(errs, models.FieldError{Field: "alert_type", Message: "must be local or v2v"})
	}

	return errs
}

// toAPIAlert converts a domain Alert to an API Alert.
func toAPIAlert(a *Alert) models.Alert {
	result := models.Alert{
		ID:               a.ID,
		HazardID:         a.HazardID,
		SenderDeviceID:   a.SenderDeviceID,
		ReceiverDeviceID: a.ReceiverDeviceID,
		AlertType:        a.Type,
		Status:           a.Status,
		CreatedAt:        models.Timestamp(a.CreatedAt),
	}

	if a.AcknowledgedAt != nil {
		ts := models.Timestamp(*a.AcknowledgedAt)
		result.AcknowledgedAt = &ts
	}

	return result
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
