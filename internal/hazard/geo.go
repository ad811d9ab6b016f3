package hazard

import "math"

// earthRadiusM is the mean Earth radius in meters (IUGG).
const earthRadiusM = 6371008.8

// DistanceMeters returns the great-circle distance between two WGS-84
// points using the haversine formula. The spherical model keeps the
// in-memory repository consistent with the geography-typed distance the
// PostgreSQL store computes; the divergence stays well under 0.5%.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// roundCoord rounds a coordinate to the heatmap grid resolution.
func roundCoord(v float64) float64 {
	shift := math.Pow(10, HeatmapPrecision)
	return math.Round(v*shift) / shift
}
