// FilePath: internal/models/models.alert.go
package models

import "time"

// AlertKind is the persisted classification of an alert.
type AlertKind string

const (
	AlertKindWarning AlertKind = "warning"
	AlertKindSpoiled AlertKind = "spoiled"
)

// Valid reports whether the kind is one of the known values.
func (k AlertKind) Valid() bool {
	return k == AlertKindWarning || k == AlertKindSpoiled
}

// Alert is a persisted threshold-crossing event for a device. Kind,
// RatioValue and Timestamp are fixed at creation; only IsResolved is
// flipped later. CallSID is set only when a voice call was dispatched.
type Alert struct {
	ID          string    `json:"id" db:"id"`
	DeviceID    string    `json:"device_id" db:"device_id"`
	Kind        AlertKind `json:"kind" db:"kind"`
	RatioValue  float64   `json:"ratio_value" db:"ratio_value"`
	PhoneNumber string    `json:"phone_number,omitempty" db:"phone_number"`
	CallSID     string    `json:"call_sid,omitempty" db:"call_sid"`
	IsResolved  bool      `json:"is_resolved" db:"is_resolved"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}
