package alert

import (
	"context"
	"time"
)

// Repository defines the interface for alert persistence.
type Repository interface {
	// Create persists a new alert.
	Create(ctx context.Context, alert *Alert) error

	// Get retrieves an alert by id.
	Get(ctx context.Context, id string) (*Alert, error)

	// ListByDevice returns alerts where the given internal device key is
	// sender or receiver, newest first.
	ListByDevice(ctx context.Context, deviceKey string) ([]*Alert, error)

	// Acknowledge transitions the alert from sent to acknowledged at the
	// given time and returns the stored record. If a concurrent caller
	// already acknowledged it, the stored record is returned unchanged so
	// every caller observes one acknowledged_at value.
	Acknowledge(ctx context.Context, id string, at time.Time) (*Alert, error)

	// Delete removes an alert. Returns false if it does not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByHazard removes all alerts referencing a hazard.
	DeleteByHazard(ctx context.Context, hazardID string) error

	// CountActive returns the number of alerts not yet acknowledged.
	CountActive(ctx context.Context) (int, error)
}
