package models

// AnalyticsSummary is the response body of GET /v1/analytics/summary.
type AnalyticsSummary struct {
	TotalHazards  int `json:"total_hazards"`
	ActiveAlerts  int `json:"active_alerts"`
	VerifiedCount int `json:"verified_count"`
}

// DayCount is one calendar day's hazard tally.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// HazardTrends is the response body of GET /v1/analytics/trends.
// HazardsByType covers all time; HazardsByDay covers the trailing window
// in ascending date order, one entry per day with at least one hazard.
type HazardTrends struct {
	HazardsByType map[string]int `json:"hazards_by_type"`
	HazardsByDay  []DayCount     `json:"hazards_by_day"`
}

// HeatmapCell is a spatial bin of hazards grouped by rounded coordinates.
type HeatmapCell struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Count int     `json:"count"`
}
