package device

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]*Device // keyed by external device id
	configs map[string]*Config // keyed by internal device key
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices: make(map[string]*Device),
		configs: make(map[string]*Config),
	}
}

// GetByExternalID retrieves a device by its caller-supplied device id.
func (r *InMemoryRepository) GetByExternalID(_ context.Context, externalID string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[externalID]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	return copyDevice(device), nil
}

// Create inserts a new device with its runtime config.
func (r *InMemoryRepository) Create(_ context.Context, device *Device, config *Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[device.ExternalID]; ok {
		return ErrDeviceExists
	}

	r.devices[device.ExternalID] = copyDevice(device)
	cfg := *config
	r.configs[config.DeviceID] = &cfg
	return nil
}

// Update updates the mutable fields of an existing device.
func (r *InMemoryRepository) Update(_ context.Context, device *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.devices[device.ExternalID]
	if !ok || existing.ID != device.ID {
		return ErrDeviceNotFound
	}

	r.devices[device.ExternalID] = copyDevice(device)
	return nil
}

// GetConfig retrieves the runtime config by internal device key.
func (r *InMemoryRepository) GetConfig(_ context.Context, deviceID string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.configs[deviceID]
	if !ok {
		return nil, ErrConfigNotFound
	}

	cfg := *config
	return &cfg, nil
}

// CreateConfig inserts a runtime config unless one already exists.
func (r *InMemoryRepository) CreateConfig(_ context.Context, config *Config) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[config.DeviceID]; ok {
		return false, nil
	}

	cfg := *config
	r.configs[config.DeviceID] = &cfg
	return true, nil
}

// copyDevice creates a deep copy of a device.
func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}

	deviceCopy := &Device{
		ID:           d.ID,
		ExternalID:   d.ExternalID,
		DeviceType:   d.DeviceType,
		RegisteredAt: d.RegisteredAt,
		LastSeen:     d.LastSeen,
		LastActive:   d.LastActive,
	}

	if d.Model != nil {
		val := *d.Model
		deviceCopy.Model = &val
	}
	if d.FirmwareVersion != nil {
		val := *d.FirmwareVersion
		deviceCopy.FirmwareVersion = &val
	}

	return deviceCopy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
