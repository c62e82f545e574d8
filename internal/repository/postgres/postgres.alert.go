// FilePath: internal/repository/postgres/postgres.alert.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

type AlertRepo struct {
	PostgresBaseRepo
}

func NewAlertRepository(db database.DB) (*AlertRepo, error) {
	repo := &AlertRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *AlertRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			ratio_value DOUBLE PRECISION NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			call_sid TEXT NOT NULL DEFAULT '',
			is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_device_kind_active
			ON alerts(device_id, kind, timestamp DESC)
			WHERE is_resolved = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize alerts schema", err)
		}
	}
	return nil
}

// Insert creates the alert unless an unresolved alert of the same kind for
// the same device exists with a timestamp at or after since. The guard and
// the insert run as one statement so two concurrent evaluations cannot
// both create an alert; the loser gets repository.ErrDuplicate.
func (r *AlertRepo) Insert(ctx context.Context, alert *models.Alert, since time.Time) error {
	query := `
		INSERT INTO alerts (
			id, device_id, kind, ratio_value, phone_number,
			call_sid, is_resolved, timestamp
		)
		SELECT $1, $2, $3, $4, $5, $6, FALSE, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM alerts
			WHERE device_id = $2 AND kind = $3
			AND is_resolved = FALSE AND timestamp >= $8
		)`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		alert.ID, alert.DeviceID, alert.Kind, alert.RatioValue,
		alert.PhoneNumber, alert.CallSID, alert.Timestamp, since)
	if err != nil {
		return errors.NewDatabaseError("failed to insert alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return repository.ErrDuplicate
	}

	return nil
}

// FindActive returns the most recent unresolved alert of the given kind
// whose timestamp is at or after since, or nil when none exists.
func (r *AlertRepo) FindActive(ctx context.Context, deviceID string, kind models.AlertKind, since time.Time) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `
		SELECT * FROM alerts
		WHERE device_id = $1 AND kind = $2
		AND is_resolved = FALSE AND timestamp >= $3
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, alert, query, deviceID, kind, since)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to find active alert", err)
	}
	return alert, nil
}

// ResolveAll marks unresolved alerts for a device as resolved. An empty
// kind resolves across both kinds.
func (r *AlertRepo) ResolveAll(ctx context.Context, deviceID string, kind models.AlertKind) (int64, error) {
	query := `UPDATE alerts SET is_resolved = TRUE WHERE device_id = $1 AND is_resolved = FALSE`
	args := []interface{}{deviceID}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, kind)
	}

	result, err := r.db.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to resolve alerts", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}

	return rows, nil
}

func (r *AlertRepo) List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	query := `SELECT * FROM alerts WHERE 1=1`
	args := []interface{}{}

	if filters.DeviceID != "" {
		args = append(args, filters.DeviceID)
		query += fmt.Sprintf(` AND device_id = $%d`, len(args))
	}
	if filters.Kind != "" {
		args = append(args, filters.Kind)
		query += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	if filters.Unresolved {
		query += ` AND is_resolved = FALSE`
	}
	if filters.Since != nil {
		args = append(args, *filters.Since)
		query += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	alerts := []*models.Alert{}
	err := r.db.GetDB().SelectContext(ctx, &alerts, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list alerts", err)
	}

	return alerts, nil
}

func (r *AlertRepo) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM alerts WHERE is_resolved = TRUE AND timestamp < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete old alerts", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[AlertRepo] Deleted %d resolved alerts before %v", rows, before)
	return rows, nil
}

func (r *AlertRepo) DeleteByDevice(ctx context.Context, deviceID string) error {
	query := `DELETE FROM alerts WHERE device_id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete alerts", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[AlertRepo] Deleted %d alerts for device %s", rows, deviceID)
	return nil
}
