// Package hazard provides the durable store of geotagged road-hazard
// reports and the radius, filter and aggregate queries over them.
package hazard

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrHazardNotFound = errors.New("hazard not found")
)

// Hazard represents a geotagged road condition report. DeviceKey is the
// internal key of the owning device; DeviceID its caller-supplied id.
type Hazard struct {
	ID         string
	HazardType string
	Severity   float64
	Confidence float64
	Lat        float64
	Lon        float64
	Ts         time.Time
	DeviceKey  string
	DeviceID   string
}

// Filter narrows List results. All fields are independently optional.
type Filter struct {
	HazardType  string
	SeverityMin *float64
	SeverityMax *float64
	Start       *time.Time
	End         *time.Time
}

// ListOptions controls pagination of List results.
type ListOptions struct {
	Skip  int
	Limit int
}

// DayCount is the number of hazards reported on one UTC calendar day.
type DayCount struct {
	Date  string // YYYY-MM-DD
	Count int
}

// Cell is a spatial bin of hazards grouped by coordinates rounded to
// heatmap resolution.
type Cell struct {
	Lat   float64
	Lon   float64
	Count int
}

// HeatmapPrecision is the number of decimal degrees kept when binning
// hazards into heatmap cells. Three decimals is roughly a 100m cell.
const HeatmapPrecision = 3
