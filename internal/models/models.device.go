// FilePath: internal/models/models.device.go
package models

import "time"

// Device represents a registered gas-sensor device that the hub polls
// or that pushes readings to the ingest endpoint.
type Device struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	URL           string    `json:"url" db:"url" readxs:"owner,system,superadmin,operator" writexs:"owner,system,superadmin,operator"`
	PhoneNumber   string    `json:"phone_number,omitempty" db:"phone_number" readxs:"owner,system,superadmin,operator" writexs:"owner,system,superadmin,operator"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CalibrationRo float64   `json:"calibration_ro" db:"calibration_ro"`
	LastSeen      time.Time `json:"last_seen" db:"last_seen"`
	LastReadingAt time.Time `json:"last_reading_at" db:"last_reading_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// OnlineStatus derives a coarse availability state from the last poll contact.
func (d *Device) OnlineStatus(now time.Time) string {
	sinceLastSeen := now.Sub(d.LastSeen)
	switch {
	case sinceLastSeen < 5*time.Minute:
		return "online"
	case sinceLastSeen < 15*time.Minute:
		return "away"
	default:
		return "offline"
	}
}
