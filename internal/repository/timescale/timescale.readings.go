// FilePath: internal/repository/timescale/timescale.readings.go
package timescale

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type ReadingRepo struct {
	TimeScaleBaseRepo
	retention time.Duration
}

func NewReadingRepository(db database.DB, retention time.Duration) (*ReadingRepo, error) {
	repo := &ReadingRepo{
		TimeScaleBaseRepo: TimeScaleBaseRepo{db: db},
		retention:         retention,
	}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ReadingRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			ro DOUBLE PRECISION NOT NULL,
			rs DOUBLE PRECISION NOT NULL,
			ratio DOUBLE PRECISION NOT NULL,
			vout DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			is_alert BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`SELECT create_hypertable('sensor_readings', 'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		`CREATE MATERIALIZED VIEW IF NOT EXISTS sensor_readings_hourly
			WITH (timescaledb.continuous) AS
			SELECT device_id,
				time_bucket('1 hour', timestamp) AS bucket,
				MIN(ratio) as min_ratio,
				MAX(ratio) as max_ratio,
				AVG(ratio) as avg_ratio,
				COUNT(*) as reading_count
			FROM sensor_readings
			GROUP BY device_id, time_bucket('1 hour', timestamp)`,
		`CREATE MATERIALIZED VIEW IF NOT EXISTS sensor_readings_daily
			WITH (timescaledb.continuous) AS
			SELECT device_id,
				time_bucket('1 day', timestamp) AS bucket,
				MIN(ratio) as min_ratio,
				MAX(ratio) as max_ratio,
				AVG(ratio) as avg_ratio,
				COUNT(*) as reading_count
			FROM sensor_readings
			GROUP BY device_id, time_bucket('1 day', timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_device_timestamp
			ON sensor_readings(device_id, timestamp DESC)`,
	}

	for _, query := range queries {
		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewDatabaseError("failed to initialize readings schema", err)
		}
	}

	r.setupRetentionPolicy()
	return nil
}

func (r *ReadingRepo) setupRetentionPolicy() {
	query := fmt.Sprintf(`
		SELECT add_retention_policy('sensor_readings',
			INTERVAL '%s',
			if_not_exists => TRUE
		)`, retentionInterval(r.retention))

	if _, err := r.db.GetDB().Exec(query); err != nil {
		nuts.L.Errorf("[ReadingRepo] Failed to set up retention policy: %v", err)
	}
}

// retentionInterval renders a Postgres interval matching the configured
// max age so the database drops chunks on the same horizon the
// housekeeping pruner uses. Falls back to 30 days when unconfigured.
func retentionInterval(maxAge time.Duration) string {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	hours := int64(maxAge.Hours())
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf("%d hours", hours)
}

func (r *ReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO sensor_readings (
			id, device_id, ro, rs, ratio, vout, status, is_alert, timestamp
		) VALUES (
			:id, :device_id, :ro, :rs, :ratio, :vout, :status, :is_alert, :timestamp
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, reading)
	if err != nil {
		return errors.NewDatabaseError("failed to insert reading", err)
	}
	return nil
}

func (r *ReadingRepo) GetHistory(ctx context.Context, deviceID string, since time.Time, limit int) ([]models.Reading, error) {
	readings := []models.Reading{}
	query := `
		SELECT * FROM sensor_readings
		WHERE device_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
		LIMIT $3`

	err := r.db.GetDB().SelectContext(ctx, &readings, query, deviceID, since, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get reading history", err)
	}
	return readings, nil
}

func (r *ReadingRepo) GetLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	reading := &models.Reading{}
	query := `
		SELECT * FROM sensor_readings
		WHERE device_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no readings for device", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest reading", err)
	}
	return reading, nil
}

func (r *ReadingRepo) GetAggregates(ctx context.Context, deviceID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	var tableName string
	switch interval {
	case "hour":
		tableName = "sensor_readings_hourly"
	case "day":
		tableName = "sensor_readings_daily"
	default:
		return nil, errors.NewValidationError("invalid interval", nil)
	}

	aggregates := []models.ReadingAggregate{}
	query := fmt.Sprintf(`
		SELECT
			device_id,
			min_ratio as min,
			max_ratio as max,
			avg_ratio as avg,
			reading_count as count,
			bucket as start_time,
			bucket + INTERVAL '1 %s' as end_time
		FROM %s
		WHERE device_id = $1 AND bucket BETWEEN $2 AND $3
		ORDER BY bucket DESC`, interval, tableName)

	err := r.db.GetDB().SelectContext(ctx, &aggregates, query, deviceID, start, end)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get reading aggregates", err)
	}
	return aggregates, nil
}

func (r *ReadingRepo) GetStats(ctx context.Context, deviceID string, since time.Time) (*models.ReadingStats, error) {
	stats := &models.ReadingStats{}
	query := `
		SELECT
			$1 as device_id,
			COUNT(*) as reading_count,
			COALESCE(AVG(ratio), 0) as avg_ratio,
			COALESCE(MIN(ratio), 0) as min_ratio,
			COALESCE(MAX(ratio), 0) as max_ratio,
			COUNT(*) FILTER (WHERE is_alert) as alert_count
		FROM sensor_readings
		WHERE device_id = $1 AND timestamp >= $2`

	err := r.db.GetDB().GetContext(ctx, stats, query, deviceID, since)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get reading stats", err)
	}
	return stats, nil
}

func (r *ReadingRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sensor_readings WHERE timestamp < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to delete old readings", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[ReadingRepo] Deleted %d readings before %v", rows, before)
	return rows, nil
}

func (r *ReadingRepo) DeleteByDevice(ctx context.Context, deviceID string) error {
	query := `DELETE FROM sensor_readings WHERE device_id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete readings", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[ReadingRepo] Deleted %d readings for device %s", rows, deviceID)
	return nil
}
