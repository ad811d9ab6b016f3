package device

import "context"

// Repository defines the interface for device persistence.
type Repository interface {
	// GetByExternalID retrieves a device by its caller-supplied device id.
	GetByExternalID(ctx context.Context, externalID string) (*Device, error)

	// Create inserts a new device together with its runtime config in one
	// atomic step. Returns ErrDeviceExists if the external id is taken.
	Create(ctx context.Context, device *Device, config *Config) error

	// Update updates the mutable fields of an existing device.
	Update(ctx context.Context, device *Device) error

	// GetConfig retrieves the runtime config by internal device key.
	GetConfig(ctx context.Context, deviceID string) (*Config, error)

	// CreateConfig inserts a runtime config. If a config already exists
	// for the device, nothing is written and ErrDeviceExists-style
	// semantics apply: the caller should read back.
	CreateConfig(ctx context.Context, config *Config) (created bool, err error)
}
