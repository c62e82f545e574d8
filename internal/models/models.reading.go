// FilePath: internal/models/models.reading.go
package models

import "time"

// Reading is a single normalized gas-sensor measurement. Ratio is Rs/Ro;
// lower values indicate more spoilage-associated gas detected.
type Reading struct {
	ID        string    `json:"id" db:"id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	Ro        float64   `json:"ro" db:"ro"`
	Rs        float64   `json:"rs" db:"rs"`
	Ratio     float64   `json:"ratio" db:"ratio"`
	Vout      float64   `json:"vout" db:"vout"`
	Status    string    `json:"status" db:"status"`
	IsAlert   bool      `json:"is_alert" db:"is_alert"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// ReadingAggregate represents bucketed ratio statistics for a device.
type ReadingAggregate struct {
	DeviceID  string    `json:"device_id" db:"device_id"`
	Min       float64   `json:"min" db:"min"`
	Max       float64   `json:"max" db:"max"`
	Avg       float64   `json:"avg" db:"avg"`
	Count     int       `json:"count" db:"count"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
}

// ReadingStats summarizes a reporting window for a device.
type ReadingStats struct {
	DeviceID     string  `json:"device_id" db:"device_id"`
	ReadingCount int     `json:"reading_count" db:"reading_count"`
	AvgRatio     float64 `json:"avg_ratio" db:"avg_ratio"`
	MinRatio     float64 `json:"min_ratio" db:"min_ratio"`
	MaxRatio     float64 `json:"max_ratio" db:"max_ratio"`
	AlertCount   int     `json:"alert_count" db:"alert_count"`
}
