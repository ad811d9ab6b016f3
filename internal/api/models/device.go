package models

// DeviceRegisterRequest is the request body for POST /v1/devices/register.
type DeviceRegisterRequest struct {
	DeviceID        string  `json:"device_id"`
	DeviceType      string  `json:"device_type"`
	Model           *string `json:"model,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`
}

// Device is the wire representation of a registered device.
type Device struct {
	DeviceID        string    `json:"device_id"`
	DeviceType      string    `json:"device_type"`
	Model           *string   `json:"model,omitempty"`
	FirmwareVersion *string   `json:"firmware_version,omitempty"`
	RegisteredAt    Timestamp `json:"registered_at"`
	LastSeen        Timestamp `json:"last_seen"`
	LastActive      Timestamp `json:"last_active"`
}

// DeviceRegistered is the response body of device registration. The
// access token authorizes destructive operations for this device.
type DeviceRegistered struct {
	Device
	AccessToken string `json:"access_token,omitempty"`
}

// DeviceConfig is the wire representation of per-device runtime configuration.
type DeviceConfig struct {
	DeviceID               string    `json:"device_id"`
	DetectionInterval      int       `json:"detection_interval"`
	AlertRadius            int       `json:"alert_radius"`
	MinConfidenceThreshold float64   `json:"min_confidence_threshold"`
	LastUpdated            Timestamp `json:"last_updated"`
}
