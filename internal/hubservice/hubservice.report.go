// FilePath: internal/hubservice/hubservice.report.go
package hubservice

import (
	"context"
	"time"

	"github.com/spoilsense/spoilsense/internal/models"
)

// DailyReport summarizes the last 24 hours of readings for a device.
type DailyReport struct {
	DeviceID     string              `json:"device_id"`
	Date         string              `json:"date"`
	ReadingStats models.ReadingStats `json:"stats"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// GetDailyReport aggregates reading statistics over the trailing 24 hours.
func (s *HubService) GetDailyReport(ctx context.Context, deviceID string) (*DailyReport, error) {
	if _, err := s.Devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stats, err := s.Readings.GetStats(ctx, deviceID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	return &DailyReport{
		DeviceID:     deviceID,
		Date:         now.Format("2006-01-02"),
		ReadingStats: *stats,
		GeneratedAt:  now,
	}, nil
}
