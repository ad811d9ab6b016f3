package analytics_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/roadsignal/roadsignal/internal/alert"
	"github.com/roadsignal/roadsignal/internal/analytics"
	"github.com/roadsignal/roadsignal/internal/api/models"
	"github.com/roadsignal/roadsignal/internal/hazard"
)

type fakeVerification struct {
	count int
	err   error
}

func (v *fakeVerification) CountDistinctVerifiedHazards(_ context.Context) (int, error) {
	return v.count, v.err
}

func seedHazard(t *testing.T, repo *hazard.InMemoryRepository, id, hazardType string, lat, lon float64, ts time.Time) {
	t.Helper()
	err := repo.Create(context.Background(), &hazard.Hazard{
		ID:         id,
		HazardType: hazardType,
		Severity:   0.5,
		Confidence: 0.9,
		Lat:        lat,
		Lon:        lon,
		Ts:         ts,
	})
	if err != nil {
		t.Fatalf("failed to seed hazard %s: %v", id, err)
	}
}

func TestService_Summary(t *testing.T) {
	hazardRepo := hazard.NewInMemoryRepository()
	alertRepo := alert.NewInMemoryRepository()
	service := analytics.NewService(analytics.ServiceConfig{
		Hazards:      hazardRepo,
		Alerts:       alertRepo,
		Verification: &fakeVerification{count: 2},
	})
	ctx := context.Background()

	now := time.Now().UTC()
	seedHazard(t, hazardRepo, "hz_1", "pothole", 12.9716, 77.5946, now)
	seedHazard(t, hazardRepo, "hz_2", "speedbump", 12.9720, 77.5950, now)

	if err := alertRepo.Create(ctx, &alert.Alert{
		ID:             "alr_1",
		SenderKey:      "dev_1",
		SenderDeviceID: "veh-001",
		Type:           models.AlertTypeLocal,
		Status:         models.AlertStatusSent,
		CreatedAt:      now,
	}); err != nil {
		t.Fatalf("failed to seed alert: %v", err)
	}

	summary, err := service.Summary(ctx)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	if summary.TotalHazards != 2 {
		t.Errorf("expected 2 total hazards, got %d", summary.TotalHazards)
	}
	if summary.ActiveAlerts != 1 {
		t.Errorf("expected 1 active alert, got %d", summary.ActiveAlerts)
	}
	if summary.VerifiedCount != 2 {
		t.Errorf("expected 2 verified hazards, got %d", summary.VerifiedCount)
	}
}

func TestService_Summary_WithoutVerification(t *testing.T) {
	service := analytics.NewService(analytics.ServiceConfig{
		Hazards: hazard.NewInMemoryRepository(),
		Alerts:  alert.NewInMemoryRepository(),
	})

	summary, err := service.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.VerifiedCount != 0 {
		t.Errorf("expected 0 verified without a verification source, got %d", summary.VerifiedCount)
	}
}

func TestService_Summary_VerificationError(t *testing.T) {
	srcErr := errors.New("verification store down")
	service := analytics.NewService(analytics.ServiceConfig{
		Hazards:      hazard.NewInMemoryRepository(),
		Alerts:       alert.NewInMemoryRepository(),
		Verification: &fakeVerification{err: srcErr},
	})

	if _, err := service.Summary(context.Background()); !errors.Is(err, srcErr) {
		t.Errorf("expected verification error to surface, got %v", err)
	}
}

func TestService_Trends(t *testing.T) {
	hazardRepo := hazard.NewInMemoryRepository()
	service := analytics.NewService(analytics.ServiceConfig{
		Hazards: hazardRepo,
		Alerts:  alert.NewInMemoryRepository(),
	})
	ctx := context.Background()

	now := time.Now().UTC()
	// Two hazards today, one three days ago, one far outside the window.
	seedHazard(t, hazardRepo, "hz_1", "pothole", 12.9716, 77.5946, now)
	seedHazard(t, hazardRepo, "hz_2", "pothole", 12.9720, 77.5950, now)
	seedHazard(t, hazardRepo, "hz_3", "speedbump", 12.9716, 77.5946, now.AddDate(0, 0, -3))
	seedHazard(t, hazardRepo, "hz_4", "pothole", 12.9716, 77.5946, now.AddDate(0, 0, -40))

	trends, err := service.Trends(ctx, 7)
	if err != nil {
		t.Fatalf("trends failed: %v", err)
	}

	// Type counts are all-time, not windowed.
	if trends.HazardsByType["pothole"] != 3 {
		t.Errorf("expected 3 potholes by type, got %d", trends.HazardsByType["pothole"])
	}
	if trends.HazardsByType["speedbump"] != 1 {
		t.Errorf("expected 1 speedbump by type, got %d", trends.HazardsByType["speedbump"])
	}

	// Day counts cover only the trailing window, ascending by date.
	if len(trends.HazardsByDay) != 2 {
		t.Fatalf("expected 2 day buckets, got %d: %+v", len(trends.HazardsByDay), trends.HazardsByDay)
	}
	if !sort.SliceIsSorted(trends.HazardsByDay, func(i, j int) bool {
		return trends.HazardsByDay[i].Date < trends.HazardsByDay[j].Date
	}) {
		t.Errorf("day buckets not ascending: %+v", trends.HazardsByDay)
	}
	today := now.Format("2006-01-02")
	last := trends.HazardsByDay[len(trends.HazardsByDay)-1]
	if last.Date != today || last.Count != 2 {
		t.Errorf("expected 2 hazards on %s, got %+v", today, last)
	}
}

func TestService_Trends_WindowValidation(t *testing.T) {
	service := analytics.NewService(analytics.ServiceConfig{
		Hazards: hazard.NewInMemoryRepository(),
		Alerts:  alert.NewInMemoryRepository(),
	})
	ctx := context.Background()

	for _, days := range []int{0, -5, analytics.MaxTrendDays + 1} {
		t.Run(fmt.Sprintf("days=%d", days), func(t *testing.T) {
			_, err := service.Trends(ctx, days)
			var vErr *analytics.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.Errors[0].Field != "days" {
				t.Errorf("expected error on field days, got %+v", vErr.Errors)
			}
		})
	}

	// The bounds themselves are valid.
	for _, days := range []int{1, analytics.MaxTrendDays} {
		if _, err := service.Trends(ctx, days); err != nil {
			t.Errorf("days=%d must be accepted, got %v", days, err)
		}
	}
}

func TestService_Heatmap(t *testing.T) {
	hazardRepo := hazard.NewInMemoryRepository()
	service := analytics.NewService(analytics.ServiceConfig{
		Hazards: hazardRepo,
		Alerts:  alert.NewInMemoryRepository(),
	})

	now := time.Now().UTC()
	// First two round to the same three-decimal cell, third to another.
	seedHazard(t, hazardRepo, "hz_1", "pothole", 12.97161, 77.59461, now)
	seedHazard(t, hazardRepo, "hz_2", "pothole", 12.97159, 77.59459, now)
	seedHazard(t, hazardRepo, "hz_3", "pothole", 12.98010, 77.60510, now)

	cells, err := service.Heatmap(context.Background())
	if err != nil {
		t.Fatalf("heatmap failed: %v", err)
	}

	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d: %+v", len(cells), cells)
	}

	byKey := make(map[string]models.HeatmapCell, len(cells))
	for _, c := range cells {
		byKey[fmt.Sprintf("%.3f:%.3f", c.Lat, c.Lon)] = c
	}

	dense, ok := byKey["12.972:77.595"]
	if !ok {
		t.Fatalf("expected cell at 12.972,77.595, got %+v", cells)
	}
	if dense.Count != 2 {
		t.Errorf("expected 2 hazards in dense cell, got %d", dense.Count)
	}
	sparse, ok := byKey["12.980:77.605"]
	if !ok {
		t.Fatalf("expected cell at 12.980,77.605, got %+v", cells)
	}
	if sparse.Count != 1 {
		t.Errorf("expected 1 hazard in sparse cell, got %d", sparse.Count)
	}
}
