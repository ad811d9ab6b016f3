package device

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/roadsignal/roadsignal/internal/api/models"
)

// Validation constants.
const (
	MaxDeviceIDLength   = 128
	MaxDeviceTypeLength = 64
)

// conflictReadBack bounds the read-back retries after losing a creation
// race to a concurrent writer for the same external device id.
const (
	conflictReadBackInterval = 25 * time.Millisecond
	conflictReadBackRetries  = 2
)

// Service provides device registry operations.
type Service struct {
	repo Repository
}

// NewService creates a new device service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register registers a new device or updates the mutable fields of an
// existing one. A brand-new device gets its default config in the same
// repository transaction.
func (s *Service) Register(ctx context.Context, input *models.DeviceRegisterRequest) (*models.Device, error) {
	if fieldErrors := s.validateRegisterInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now().UTC()

	existing, err := s.repo.GetByExternalID(ctx, input.DeviceID)
	switch {
	case err == nil:
		existing.DeviceType = input.DeviceType
		existing.Model = input.Model
		existing.FirmwareVersion = input.FirmwareVersion
		existing.LastActive = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		result := toAPIDevice(existing)
		return &result, nil
	case !errors.Is(err, ErrDeviceNotFound):
		return nil, err
	}

	created := newDevice(input.DeviceID, input.DeviceType, now)
	created.Model = input.Model
	created.FirmwareVersion = input.FirmwareVersion

	err = s.repo.Create(ctx, created, DefaultConfig(created.ID, now))
	if errors.Is(err, ErrDeviceExists) {
		// Lost the race to a concurrent registration; apply as an update.
		winner, rbErr := s.readBack(ctx, input.DeviceID)
		if rbErr != nil {
			return nil, rbErr
		}
		winner.DeviceType = input.DeviceType
		winner.Model = input.Model
		winner.FirmwareVersion = input.FirmwareVersion
		winner.LastActive = now
		if err := s.repo.Update(ctx, winner); err != nil {
			return nil, err
		}
		result := toAPIDevice(winner)
		return &result, nil
	}
	if err != nil {
		return nil, err
	}

	result := toAPIDevice(created)
	return &result, nil
}

// GetByExternalID retrieves a device by its caller-supplied id.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*models.Device, error) {
	device, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	result := toAPIDevice(device)
	return &result, nil
}

// Heartbeat updates last_seen and last_active for a device.
func (s *Service) Heartbeat(ctx context.Context, externalID string) (*models.Device, error) {
	device, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	device.LastSeen = now
	device.LastActive = now

	if err := s.repo.Update(ctx, device); err != nil {
		return nil, err
	}

	result := toAPIDevice(device)
	return &result, nil
}

// GetOrCreateConfig returns the device's runtime config, creating the
// defaults on first access. Safe against concurrent first readers.
func (s *Service) GetOrCreateConfig(ctx context.Context, externalID string) (*models.DeviceConfig, error) {
	device, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	config, err := s.repo.GetConfig(ctx, device.ID)
	if errors.Is(err, ErrConfigNotFound) {
		defaults := DefaultConfig(device.ID, time.Now().UTC())
		created, createErr := s.repo.CreateConfig(ctx, defaults)
		if createErr != nil {
			return nil, createErr
		}
		if created {
			result := toAPIConfig(defaults, device.ExternalID)
			return &result, nil
		}
		// A concurrent reader created it first; use theirs.
		config, err = s.repo.GetConfig(ctx, device.ID)
	}
	if err != nil {
		return nil, err
	}

	result := toAPIConfig(config, device.ExternalID)
	return &result, nil
}

// Lookup resolves a caller-supplied device id to the stored device,
// internal key included. Used by collaborators that must not auto-create.
func (s *Service) Lookup(ctx context.Context, externalID string) (*Device, error) {
	return s.repo.GetByExternalID(ctx, externalID)
}

// Ensure returns the device for the given external id, creating it with
// device_type "unknown" (plus default config) if it does not exist yet.
// Concurrent callers for the same id converge on a single stored device:
// the unique key on device_id rejects the losers, which read the winner
// back with a short bounded retry.
func (s *Service) Ensure(ctx context.Context, externalID string) (*Device, error) {
	if externalID == "" {
		return nil, ErrDeviceNotFound
	}

	device, err := s.repo.GetByExternalID(ctx, externalID)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created := newDevice(externalID, TypeUnknown, now)

	err = s.repo.Create(ctx, created, DefaultConfig(created.ID, now))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrDeviceExists) {
		return nil, err
	}

	return s.readBack(ctx, externalID)
}

// readBack fetches the device created by a concurrent writer. The retry
// covers stores where the winning insert is not yet visible.
func (s *Service) readBack(ctx context.Context, externalID string) (*Device, error) {
	var device *Device

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(conflictReadBackInterval), conflictReadBackRetries),
		ctx,
	)

	err := backoff.Retry(func() error {
		var rbErr error
		device, rbErr = s.repo.GetByExternalID(ctx, externalID)
		return rbErr
	}, bo)
	if err != nil {
		return nil, err
	}

	return device, nil
}

func (s *Service) validateRegisterInput(input *models.DeviceRegisterRequest) []models.FieldError {
	var errs []models.FieldError

	if input.DeviceID == "" {
		errs = append(errs, models.FieldError{Field: "device_id", Message: "is required"})
	} else if len(input.DeviceID) > MaxDeviceIDLength {
		errs = append(errs, models.FieldError{Field: "device_id", Message: "must be at most 128 characters"})
	}

	if input.DeviceType == "" {
		errs = append(errs, models.FieldError{Field: "device_type", Message: "is required"})
	} else if len(input.DeviceType) > MaxDeviceTypeLength {
		errs = append(errs, models.FieldError{Field: "device_type", Message: "must be at most 64 characters"})
	}

	return errs
}

func newDevice(externalID, deviceType string, now time.Time) *Device {
	return &Device{
		ID:           "dev_" + uuid.New().String(),
		ExternalID:   externalID,
		DeviceType:   deviceType,
		RegisteredAt: now,
		LastSeen:     now,
		LastActive:   now,
	}
}

// toAPIDevice converts a domain Device to an API Device.
func toAPIDevice(d *Device) models.Device {
	return models.Device{
		DeviceID:        d.ExternalID,
		DeviceType:      d.DeviceType,
		Model:           d.Model,
		FirmwareVersion: d.FirmwareVersion,
		RegisteredAt:    models.Timestamp(d.RegisteredAt),
		LastSeen:        models.Timestamp(d.LastSeen),
		LastActive:      models.Timestamp(d.LastActive),
	}
}

// toAPIConfig converts a domain Config to an API DeviceConfig. The wire
// shape reports the caller-supplied device id, not the internal key.
func toAPIConfig(c *Config, externalID string) models.DeviceConfig {
	return models.DeviceConfig{
		DeviceID:               externalID,
		DetectionInterval:      c.DetectionInterval,
		AlertRadius:            c.AlertRadius,
		MinConfidenceThreshold: c.MinConfidenceThreshold,
		LastUpdated:            models.Timestamp(c.LastUpdated),
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
