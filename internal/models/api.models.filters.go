// FilePath: internal/models/api.models.filters.go
package models

import "time"

// AlertFilters defines the available filter options for listing alerts.
// Decoded from query parameters via gorilla/schema.
type AlertFilters struct {
	DeviceID   string     `schema:"device_id"`
	Kind       AlertKind  `schema:"kind"`
	Unresolved bool       `schema:"unresolved"`
	Since      *time.Time `schema:"since"`
}

// ReadingQuery defines the window parameters for reading history requests.
type ReadingQuery struct {
	Hours int `schema:"hours"`
	Limit int `schema:"limit"`
}
