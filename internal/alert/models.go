// Package alert provides the alert lifecycle: creation, per-device
// listing, and the single sent-to-acknowledged transition.
package alert

import (
	"errors"
	"time"

	"github.com/roadsignal/roadsignal/internal/api/models"
)

// Repository errors. Acknowledgment by a device that is neither sender
// nor receiver surfaces as ErrAlertNotFound so existence does not leak.
var (
	ErrAlertNotFound = errors.New("alert not found")
)

// Alert represents a hazard notification from a sending device to an
// optional receiving device. SenderKey/ReceiverKey are internal device
// keys; SenderDeviceID/ReceiverDeviceID the caller-supplied ids.
type Alert struct {
	ID               string
	HazardID         *string
	SenderKey        string
	ReceiverKey      *string
	SenderDeviceID   string
	ReceiverDeviceID *string
	Type             models.AlertType
	Status           models.AlertStatus
	CreatedAt        time.Time
	AcknowledgedAt   *time.Time
}

// Acknowledged reports whether the alert has left the sent state.
func (a *Alert) Acknowledged() bool {
	return a.Status == models.AlertStatusAcknowledged
}

// ownedBy reports whether the given internal device key holds the
// acknowledging right: the sender or, for v2v alerts, the receiver.
func (a *Alert) ownedBy(deviceKey string) bool {
	if a.SenderKey == deviceKey {
		return true
	}
	return a.ReceiverKey != nil && *a.ReceiverKey == deviceKey
}
