// Package device provides the registry of reporting and receiving devices
// and their per-device runtime configuration.
package device

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceExists   = errors.New("device already exists")
	ErrConfigNotFound = errors.New("device config not found")
)

// TypeUnknown is assigned to devices auto-created from a hazard or alert
// that references an unregistered device id.
const TypeUnknown = "unknown"

// Default runtime configuration assigned when a device is first seen.
const (
	DefaultDetectionInterval      = 5   // seconds
	DefaultAlertRadius            = 500 // meters
	DefaultMinConfidenceThreshold = 0.7
)

// Device represents a registered reporting or receiving endpoint.
// ExternalID is the caller-supplied device id and is unique across the
// registry; ID is the internal key other entities reference.
type Device struct {
	ID              string
	ExternalID      string
	DeviceType      string
	Model           *string
	FirmwareVersion *string
	RegisteredAt    time.Time
	LastSeen        time.Time
	LastActive      time.Time
}

// Config holds per-device runtime configuration, one-to-one with Device.
type Config struct {
	DeviceID               string // internal device key
	DetectionInterval      int    // seconds
	AlertRadius            int    // meters
	MinConfidenceThreshold float64
	LastUpdated            time.Time
}

// DefaultConfig returns the default configuration for a device.
func DefaultConfig(deviceID string, now time.Time) *Config {
	return &Config{
		DeviceID:               deviceID,
		DetectionInterval:      DefaultDetectionInterval,
		AlertRadius:            DefaultAlertRadius,
		MinConfidenceThreshold: DefaultMinConfidenceThreshold,
		LastUpdated:            now,
	}
}
