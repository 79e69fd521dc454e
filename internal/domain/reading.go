package domain

import "time"

// RawReading is one row of the source devices table as fetched, before any
// decoding. Time holds the epoch seconds as text so integer and text source
// columns scan the same way.
type RawReading struct {
	DeviceID    string
	Time        string
	Temperature float64
	Location    string
}

// Location is a WGS-84 latitude/longitude pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading is a decoded telemetry sample.
type Reading struct {
	DeviceID    string
	Time        time.Time
	Temperature float64
	Location    Location
}

// HourlySummary is one row of the aggregated output, keyed by (Hour, DeviceID).
type HourlySummary struct {
	Hour           time.Time `json:"hour"`
	DeviceID       string    `json:"device_id"`
	MaxTemperature float64   `json:"max_temperature"`
	DataPointCount int       `json:"data_point_count"`
	TotalDistance  float64   `json:"total_distance"`
}

// SummaryColumns lists the output table columns in write order.
var SummaryColumns = []string{"hour", "device_id", "max_temperature", "data_point_count", "total_distance"}
