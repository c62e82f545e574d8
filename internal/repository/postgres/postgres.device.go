// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/models"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) (*DeviceRepo, error) {
	repo := &DeviceRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *DeviceRepo) initializeSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			calibration_ro DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_seen TIMESTAMPTZ NOT NULL,
			last_reading_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`

	if _, err := r.db.GetDB().Exec(query); err != nil {
		return errors.NewDatabaseError("failed to initialize devices schema", err)
	}
	return nil
}

func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (
			id, name, description, url, phone_number, is_active,
			calibration_ro, last_seen, last_reading_at, created_at, updated_at
		) VALUES (
			:id, :name, :description, :url, :phone_number, :is_active,
			:calibration_ro, :last_seen, :last_reading_at, :created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.Device) error {
	query := `
		UPDATE devices SET
			name = :name,
			description = :description,
			url = :url,
			phone_number = :phone_number,
			is_active = :is_active,
			calibration_ro = :calibration_ro,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to update device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM devices WHERE id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}

func (r *DeviceRepo) List(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}

	return devices, nil
}

func (r *DeviceRepo) ListActive(ctx context.Context) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices WHERE is_active = TRUE ORDER BY created_at`

	err := r.db.GetDB().SelectContext(ctx, &devices, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active devices", err)
	}

	return devices, nil
}

func (r *DeviceRepo) UpdateLastSeen(ctx context.Context, id string, lastSeen time.Time) error {
	query := `UPDATE devices SET last_seen = $1 WHERE id = $2`
	result, err := r.db.GetDB().ExecContext(ctx, query, lastSeen, id)
	if err != nil {
		return errors.NewDatabaseError("failed to update last seen", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}

func (r *DeviceRepo) UpdateLastReading(ctx context.Context, id string, lastReading time.Time) error {
	query := `UPDATE devices SET last_reading_at = $1 WHERE id = $2`
	result, err := r.db.GetDB().ExecContext(ctx, query, lastReading, id)
	if err != nil {
		return errors.NewDatabaseError("failed to update last reading time", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}
