package models

// AlertType discriminates local alerts from vehicle-to-vehicle alerts.
type AlertType string

const (
	AlertTypeLocal AlertType = "local"
	AlertTypeV2V   AlertType = "v2v"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertStatusSent         AlertStatus = "sent"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
)

// AlertCreateRequest is the request body for POST /v1/alerts.
type AlertCreateRequest struct {
	HazardID         *string   `json:"hazard_id,omitempty"`
	SenderDeviceID   string    `json:"sender_device_id"`
	ReceiverDeviceID *string   `json:"receiver_device_id,omitempty"`
	AlertType        AlertType `json:"alert_type"`
}

// AlertAcknowledgeRequest is the request body for POST /v1/alerts/{alertId}/acknowledge.
type AlertAcknowledgeRequest struct {
	DeviceID string `json:"device_id"`
}

// Alert is the wire representation of an alert. Device references are the
// caller-supplied device ids, not internal keys.
type Alert struct {
	ID               string      `json:"id"`
	HazardID         *string     `json:"hazard_id,omitempty"`
	SenderDeviceID   string      `json:"sender_device_id"`
	ReceiverDeviceID *string     `json:"receiver_device_id,omitempty"`
	AlertType        AlertType   `json:"alert_type"`
	Status           AlertStatus `json:"status"`
	CreatedAt        Timestamp   `json:"created_at"`
	AcknowledgedAt   *Timestamp  `json:"acknowledged_at,omitempty"`
}
