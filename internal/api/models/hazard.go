package models

// HazardCreateRequest is the request body for POST /v1/hazards.
type HazardCreateRequest struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	HazardType string  `json:"hazard_type"`
	Severity   float64 `json:"severity"`
	Confidence float64 `json:"confidence"`
	DeviceID   string  `json:"device_id"`
}

// Hazard is the wire representation of a road hazard report. Lat/lon are
// reconstructed from the stored point representation.
type Hazard struct {
	ID         string    `json:"id"`
	HazardType string    `json:"hazard_type"`
	Severity   float64   `json:"severity"`
	Confidence float64   `json:"confidence"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Ts         Timestamp `json:"ts"`
	DeviceID   string    `json:"device_id"`
}
