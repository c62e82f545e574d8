// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// DeviceRepository defines the interface for device registry operations
type DeviceRepository interface {
	database.Repository
	Create(ctx context.Context, device *models.Device) error
	Get(ctx context.Context, id string) (*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*models.Device, error)
	ListActive(ctx context.Context) ([]*models.Device, error)
	UpdateLastSeen(ctx context.Context, id string, lastSeen time.Time) error
	UpdateLastReading(ctx context.Context, id string, lastReading time.Time) error
}

// ReadingRepository defines the interface for reading persistence
type ReadingRepository interface {
	database.Repository
	Insert(ctx context.Context, reading *models.Reading) error
	GetHistory(ctx context.Context, deviceID string, since time.Time, limit int) ([]models.Reading, error)
	GetLatest(ctx context.Context, deviceID string) (*models.Reading, error)
	GetAggregates(ctx context.Context, deviceID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error)
	GetStats(ctx context.Context, deviceID string, since time.Time) (*models.ReadingStats, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	DeleteByDevice(ctx context.Context, deviceID string) error
}

// AlertRepository defines the interface for alert history. Insert is a
// conditional insert: it refuses to create a second unresolved alert of
// the same kind for the same device inside the given cooldown window and
// reports ErrDuplicate instead, so concurrent evaluations cannot both
// create one.
type AlertRepository interface {
	database.Repository
	Insert(ctx context.Context, alert *models.Alert, since time.Time) error
	FindActive(ctx context.Context, deviceID string, kind models.AlertKind, since time.Time) (*models.Alert, error)
	ResolveAll(ctx context.Context, deviceID string, kind models.AlertKind) (int64, error)
	List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error)
	DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteByDevice(ctx context.Context, deviceID string) error
}
