package hazard_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/device"
	"github.com/roadsignal/roadsignal/internal/hazard"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) HazardCreated(id, hazardType string, lat, lon float64, ts time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, id+":"+hazardType)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fakeCascade struct {
	mu      sync.Mutex
	deleted []string
}

func (c *fakeCascade) DeleteByHazard(_ context.Context, hazardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, hazardID)
	return nil
}

func newTestService(notifier hazard.Notifier, alerts hazard.AlertCascade) *hazard.Service {
	devices := device.NewService(device.NewInMemoryRepository())
	return hazard.NewService(hazard.ServiceConfig{
		Repository: hazard.NewInMemoryRepository(),
		Devices:    devices,
		Notifier:   notifier,
		Alerts:     alerts,
		Logger:     zerolog.Nop(),
	})
}

func validCreateRequest() *models.HazardCreateRequest {
	return &models.HazardCreateRequest{
		Lat:        12.9716,
		Lon:        77.5946,
		HazardType: "pothole",
		Severity:   0.8,
		Confidence: 0.95,
		DeviceID:   "veh-001",
	}
}

func TestService_Create(t *testing.T) {
	notifier := &fakeNotifier{}
	service := newTestService(notifier, nil)
	ctx := context.Background()

	created, err := service.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("failed to create hazard: %v", err)
	}

	if !strings.HasPrefix(created.ID, "hz_") {
		t.Errorf("expected hz_ id prefix, got %q", created.ID)
	}
	if created.HazardType != "pothole" {
		t.Errorf("expected hazard_type pothole, got %q", created.HazardType)
	}
	if created.DeviceID != "veh-001" {
		t.Errorf("expected device_id veh-001, got %q", created.DeviceID)
	}
	if created.Ts.Time().IsZero() {
		t.Error("expected server-assigned timestamp")
	}

	if notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", notifier.count())
	}

	// The hazard is retrievable by id.
	got, err := service.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to fetch created hazard: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("fetched id %q does not match created %q", got.ID, created.ID)
	}
}

func TestService_Create_ValidationErrors(t *testing.T) {
	service := newTestService(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(*models.HazardCreateRequest)
		wantField string
	}{
		{
			name:      "latitude out of range",
			mutate:    func(r *models.HazardCreateRequest) { r.Lat = 91 },
			wantField: "lat",
		},
		{
			name:      "longitude out of range",
			mutate:    func(r *models.HazardCreateRequest) { r.Lon = -181 },
			wantField: "lon",
		},
		{
			name:      "missing hazard_type",
			mutate:    func(r *models.HazardCreateRequest) { r.HazardType = "" },
			wantField: "hazard_type",
		},
		{
			name:      "missing device_id",
			mutate:    func(r *models.HazardCreateRequest) { r.DeviceID = "" },
			wantField: "device_id",
		},
		{
			name:      "severity above 1",
			mutate:    func(r *models.HazardCreateRequest) { r.Severity = 1.5 },
			wantField: "severity",
		},
		{
			name:      "negative confidence",
			mutate:    func(r *models.HazardCreateRequest) { r.Confidence = -0.1 },
			wantField: "confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validCreateRequest()
			tt.mutate(input)

			_, err := service.Create(ctx, input)
			var vErr *hazard.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}

			found := false
			for _, fe := range vErr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %+v", tt.wantField, vErr.Errors)
			}
		})
	}
}

func TestService_Create_AutoRegistersDevice(t *testing.T) {
	deviceRepo := device.NewInMemoryRepository()
	devices := device.NewService(deviceRepo)
	service := hazard.NewService(hazard.ServiceConfig{
		Repository: hazard.NewInMemoryRepository(),
		Devices:    devices,
		Logger:     zerolog.Nop(),
	})
	ctx := context.Background()

	if _, err := service.Create(ctx, validCreateRequest()); err != nil {
		t.Fatalf("failed to create hazard: %v", err)
	}

	registered, err := devices.GetByExternalID(ctx, "veh-001")
	if err != nil {
		t.Fatalf("reporting device was not auto-registered: %v", err)
	}
	if registered.DeviceType != device.TypeUnknown {
		t.Errorf("auto-registered device must have type %q, got %q", device.TypeUnknown, registered.DeviceType)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	service := newTestService(nil, nil)

	_, err := service.Get(context.Background(), "hz_missing")
	if !errors.Is(err, hazard.ErrHazardNotFound) {
		t.Errorf("expected ErrHazardNotFound, got %v", err)
	}
}

func TestService_Nearby(t *testing.T) {
	service := newTestService(nil, nil)
	ctx := context.Background()

	near := validCreateRequest()
	near.Lat, near.Lon = 12.9720, 77.5950

	far := validCreateRequest()
	far.HazardType = "speedbump"
	far.Lat, far.Lon = 12.9800, 77.6050

	if _, err := service.Create(ctx, near); err != nil {
		t.Fatalf("failed to create near hazard: %v", err)
	}
	if _, err := service.Create(ctx, far); err != nil {
		t.Fatalf("failed to create far hazard: %v", err)
	}

	results, err := service.Nearby(ctx, 12.9716, 77.5946, 500)
	if err != nil {
		t.Fatalf("nearby query failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 hazard within 500m, got %d", len(results))
	}
	if results[0].HazardType != "pothole" {
		t.Errorf("expected the near hazard, got %q", results[0].HazardType)
	}
}

func TestService_Nearby_ValidationErrors(t *testing.T) {
	service := newTestService(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name              string
		lat, lon, radiusM float64
		wantField         string
	}{
		{"bad latitude", 95, 77.5946, 500, "lat"},
		{"bad longitude", 12.9716, 200, 500, "lon"},
		{"zero radius", 12.9716, 77.5946, 0, "radius_m"},
		{"negative radius", 12.9716, 77.5946, -10, "radius_m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Nearby(ctx, tt.lat, tt.lon, tt.radiusM)
			var vErr *hazard.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.Errors[0].Field != tt.wantField {
				t.Errorf("expected error on field %q, got %+v", tt.wantField, vErr.Errors)
			}
		})
	}
}

func TestService_List(t *testing.T) {
	service := newTestService(nil, nil)
	ctx := context.Background()

	types := []string{"pothole", "pothole", "speedbump"}
	severities := []float64{0.3, 0.9, 0.5}
	for i, typ := range types {
		input := validCreateRequest()
		input.HazardType = typ
		input.Severity = severities[i]
		if _, err := service.Create(ctx, input); err != nil {
			t.Fatalf("failed to seed hazard: %v", err)
		}
	}

	t.Run("no filter returns all", func(t *testing.T) {
		results, err := service.List(ctx, hazard.Filter{}, hazard.ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 hazards, got %d", len(results))
		}
	})

	t.Run("filter by type", func(t *testing.T) {
		results, err := service.List(ctx, hazard.Filter{HazardType: "pothole"}, hazard.ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("expected 2 potholes, got %d", len(results))
		}
	})

	t.Run("filter by severity band", func(t *testing.T) {
		min, max := 0.4, 0.95
		results, err := service.List(ctx, hazard.Filter{SeverityMin: &min, SeverityMax: &max}, hazard.ListOptions{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("expected 2 hazards in band, got %d", len(results))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		results, err := service.List(ctx, hazard.Filter{}, hazard.ListOptions{Skip: 2, Limit: 10})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("expected 1 hazard after skipping 2, got %d", len(results))
		}
	})
}

func TestService_List_ValidationErrors(t *testing.T) {
	service := newTestService(nil, nil)
	ctx := context.Background()

	badMin := 1.5
	hiMin, loMax := 0.8, 0.2
	later := time.Now().UTC()
	earlier := later.Add(-24 * time.Hour)

	tests := []struct {
		name      string
		filter    hazard.Filter
		opts      hazard.ListOptions
		wantField string
	}{
		{
			name:      "negative skip",
			opts:      hazard.ListOptions{Skip: -1, Limit: 10},
			wantField: "skip",
		},
		{
			name:      "limit above maximum",
			opts:      hazard.ListOptions{Limit: hazard.MaxListLimit + 1},
			wantField: "limit",
		},
		{
			name:      "severity_min out of range",
			filter:    hazard.Filter{SeverityMin: &badMin},
			opts:      hazard.ListOptions{Limit: 10},
			wantField: "severity_min",
		},
		{
			name:      "severity_min above severity_max",
			filter:    hazard.Filter{SeverityMin: &hiMin, SeverityMax: &loMax},
			opts:      hazard.ListOptions{Limit: 10},
			wantField: "severity_min",
		},
		{
			name:      "start after end",
			filter:    hazard.Filter{Start: &later, End: &earlier},
			opts:      hazard.ListOptions{Limit: 10},
			wantField: "start_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.List(ctx, tt.filter, tt.opts)
			var vErr *hazard.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}

			found := false
			for _, fe := range vErr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got %+v", tt.wantField, vErr.Errors)
			}
		})
	}
}

func TestService_Delete(t *testing.T) {
	cascade := &fakeCascade{}
	service := newTestService(nil, cascade)
	ctx := context.Background()

	created, err := service.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("failed to create hazard: %v", err)
	}

	deleted, err := service.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to report true")
	}

	if len(cascade.deleted) != 1 || cascade.deleted[0] != created.ID {
		t.Errorf("expected alert cascade for %q, got %v", created.ID, cascade.deleted)
	}

	if _, err := service.Get(ctx, created.ID); !errors.Is(err, hazard.ErrHazardNotFound) {
		t.Errorf("expected fetch after delete to fail, got %v", err)
	}

	// Deleting again reports false without cascading.
	deleted, err = service.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report false")
	}
	if len(cascade.deleted) != 1 {
		t.Errorf("cascade must not run for missing hazards, got %v", cascade.deleted)
	}
}
