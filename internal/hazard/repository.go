package hazard

import (
	"context"
	"time"
)

// Repository defines the interface for hazard persistence and the
// aggregate queries the analytics facade composes.
type Repository interface {
	// Create persists a new hazard record.
	Create(ctx context.Context, hazard *Hazard) error

	// Get retrieves a hazard by id with lat/lon reconstructed from the
	// stored point.
	Get(ctx context.Context, id string) (*Hazard, error)

	// Nearby returns all hazards within radiusM meters geodesic distance
	// of the given point, newest first.
	Nearby(ctx context.Context, lat, lon, radiusM float64) ([]*Hazard, error)

	// List returns hazards matching the filter, newest first.
	List(ctx context.Context, filter Filter, opts ListOptions) ([]*Hazard, error)

	// Delete removes a hazard. Returns false if it does not exist.
	// Dependent alerts cascade at the store level.
	Delete(ctx context.Context, id string) (bool, error)

	// Count returns the total number of hazards.
	Count(ctx context.Context) (int, error)

	// CountByType returns all-time hazard counts keyed by hazard type.
	CountByType(ctx context.Context) (map[string]int, error)

	// CountByDay returns per-UTC-day hazard counts since the given time,
	// ascending by date, days with no hazards omitted.
	CountByDay(ctx context.Context, since time.Time) ([]DayCount, error)

	// Heatmap bins hazards into cells of HeatmapPrecision decimal degrees
	// and returns the non-empty cells.
	Heatmap(ctx context.Context) ([]Cell, error)
}
