package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roadsignal/roadsignal/internal/api/models"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu     sync.Mutex
	alerts map[string]*Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
	}
}

// Create persists a new alert.
func (r *InMemoryRepository) Create(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[alert.ID] = copyAlert(alert)
	return nil
}

// Get retrieves an alert by id.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}

	return copyAlert(alert), nil
}

// ListByDevice returns alerts where the device is sender or receiver,
// newest first.
func (r *InMemoryRepository) ListByDevice(_ context.Context, deviceKey string) ([]*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []*Alert
	for _, alert := range r.alerts {
		if alert.ownedBy(deviceKey) {
			matches = append(matches, copyAlert(alert))
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	return matches, nil
}

// Acknowledge transitions the alert from sent to acknowledged. The
// repository mutex serializes concurrent acknowledgments; the first
// caller's timestamp wins and later callers observe it unchanged.
func (r *InMemoryRepository) Acknowledge(_ context.Context, id string, at time.Time) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}

	if alert.Status == models.AlertStatusSent {
		ackAt := at
		alert.Status = models.AlertStatusAcknowledged
		alert.AcknowledgedAt = &ackAt
	}

	return copyAlert(alert), nil
}

// Delete removes an alert.
func (r *InMemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return false, nil
	}

	delete(r.alerts, id)
	return true, nil
}

// DeleteByHazard removes all alerts referencing a hazard.
func (r *InMemoryRepository) DeleteByHazard(_ context.Context, hazardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, alert := range r.alerts {
		if alert.HazardID != nil && *alert.HazardID == hazardID {
			delete(r.alerts, id)
		}
	}
	return nil
}

// CountActive returns the number of alerts not yet acknowledged.
func (r *InMemoryRepository) CountActive(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, alert := range r.alerts {
		if alert.Status != models.AlertStatusAcknowledged {
			count++
		}
	}
	return count, nil
}

// copyAlert creates a deep copy of an alert.
func copyAlert(a *Alert) *Alert {
	if a == nil {
		return nil
	}

	alertCopy := &Alert{
		ID:             a.ID,
		SenderKey:      a.SenderKey,
		SenderDeviceID: a.SenderDeviceID,
		Type:           a.Type,
		Status:         a.Status,
		CreatedAt:      a.CreatedAt,
	}

	if a.HazardID != nil {
		val := *a.HazardID
		alertCopy.HazardID = &val
	}
	if a.ReceiverKey != nil {
		val := *a.ReceiverKey
		alertCopy.ReceiverKey = &val
	}
	if a.ReceiverDeviceID != nil {
		val := *a.ReceiverDeviceID
		alertCopy.ReceiverDeviceID = &val
	}
	if a.AcknowledgedAt != nil {
		val := *a.AcknowledgedAt
		alertCopy.AcknowledgedAt = &val
	}

	return alertCopy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
