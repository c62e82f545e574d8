// FilePath: internal/hubservice/hubservice.reading.go
package hubservice

import (
	"context"
	"time"

	"github.com/spoilsense/spoilsense/internal/alerting"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

// ProcessRaw runs one raw payload through the full pipeline: normalize,
// persist, cache, evaluate. The source label ("poll" or "push") is only
// used for metrics. A history-store failure aborts with an error; cache
// and notification failures do not.
func (s *HubService) ProcessRaw(ctx context.Context, deviceID string, raw map[string]interface{}, source string) (*models.Reading, *alerting.Decision, error) {
	device, err := s.Devices.Get(ctx, deviceID)
	if err != nil {
		return nil, nil, err
	}

	reading := s.Normalizer.Normalize(raw, device.ID)
	reading.ID = nuts.NID("rd", 12)
	reading.IsAlert = reading.Ratio <= s.alertCfg.RatioWarning

	if err := s.Readings.Insert(ctx, &reading); err != nil {
		return nil, nil, err
	}

	monitoring.ReadingsIngested.WithLabelValues(device.ID, source).Inc()
	monitoring.ReadingRatio.WithLabelValues(device.ID).Set(reading.Ratio)

	if s.Cache != nil {
		s.Cache.SetLatest(ctx, &reading)
	}

	if err := s.Devices.UpdateLastReading(ctx, device.ID, reading.Timestamp); err != nil {
		nuts.L.Warnf("[ReadingService] Failed to update last reading time for %s: %v", device.ID, err)
	}

	decision, err := s.Engine.Evaluate(ctx, reading, device.PhoneNumber)
	if err != nil {
		return &reading, nil, err
	}
	monitoring.AlertDecisions.WithLabelValues(string(decision.Outcome), string(decision.Kind)).Inc()

	nuts.L.Infof("[ReadingService] Reading %s for device %s: ratio %.3f, %s",
		reading.ID, device.ID, reading.Ratio, decision.Outcome)
	return &reading, &decision, nil
}

// GetLatestReading serves the newest reading from cache when possible and
// falls back to the store, re-priming the cache on the way out.
func (s *HubService) GetLatestReading(ctx context.Context, deviceID string) (*models.Reading, error) {
	if s.Cache != nil {
		if reading := s.Cache.GetLatest(ctx, deviceID); reading != nil {
			return reading, nil
		}
	}

	reading, err := s.Readings.GetLatest(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.SetLatest(ctx, reading)
	}
	return reading, nil
}

// GetReadingHistory returns readings for the trailing window, newest
// first. Hours defaults to 24, limit to 1000.
func (s *HubService) GetReadingHistory(ctx context.Context, deviceID string, hours, limit int) ([]models.Reading, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 || limit > 2000 {
		limit = 1000
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	return s.Readings.GetHistory(ctx, deviceID, since, limit)
}

// GetReadingAggregates returns bucketed ratio statistics.
func (s *HubService) GetReadingAggregates(ctx context.Context, deviceID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	return s.Readings.GetAggregates(ctx, deviceID, start, end, interval)
}
