// FilePath: internal/housekeeping/housekeeping.go

// Package housekeeping prunes aged data and cascades device deletion.
// The alert engine never deletes records itself; retention lives here.
package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Service coordinates retention pruning and hierarchical deletion.
type Service struct {
	devices  repository.DeviceRepository
	readings repository.ReadingRepository
	alerts   repository.AlertRepository
	cfg      config.RetentionConfig
	events   *nuts.EventEmitter
	now      func() time.Time
}

// New creates a new housekeeping Service
func New(
	devices repository.DeviceRepository,
	readings repository.ReadingRepository,
	alerts repository.AlertRepository,
	cfg config.RetentionConfig,
) *Service {
	return &Service{
		devices:  devices,
		readings: readings,
		alerts:   alerts,
		cfg:      cfg,
		events:   nuts.NewEventEmitter(),
		now:      time.Now,
	}
}

// Run prunes on the configured interval until the context is canceled.
func (s *Service) Run(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	nuts.L.Infof("[Housekeeping] Pruning every %v, retaining %v of data", interval, s.cfg.MaxAge)
	for {
		select {
		case <-ctx.Done():
			nuts.L.Infof("[Housekeeping] Stopped")
			return
		case <-ticker.C:
			if err := s.Prune(ctx); err != nil {
				nuts.L.Errorf("[Housekeeping] Prune failed: %v", err)
			}
		}
	}
}

// Prune removes readings older than the retention window and resolved
// alerts older than the same window. Unresolved alerts are never pruned.
func (s *Service) Prune(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.MaxAge)

	readingsDeleted, err := s.readings.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune readings: %w", err)
	}
	if readingsDeleted > 0 {
		s.events.Emit("readings.pruned", readingsDeleted)
	}

	alertsDeleted, err := s.alerts.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune alerts: %w", err)
	}
	if alertsDeleted > 0 {
		s.events.Emit("alerts.pruned", alertsDeleted)
	}

	nuts.L.Infof("[Housekeeping] Pruned %d readings and %d resolved alerts before %v",
		readingsDeleted, alertsDeleted, cutoff)
	return nil
}

// DeleteDevice deletes a device and all its associated data.
func (s *Service) DeleteDevice(ctx context.Context, deviceID string) error {
	if err := s.readings.DeleteByDevice(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete readings: %w", err)
	}

	if err := s.alerts.DeleteByDevice(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete alerts: %w", err)
	}

	if err := s.devices.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	s.events.Emit("device.deleted", deviceID)
	return nil
}

// OnEvent registers a callback for housekeeping events. Every event
// carries a single payload: pruning events an int64 count,
// device.deleted the device id.
func (s *Service) OnEvent(event string, handler func(arg interface{})) {
	s.events.On(event, "housekeeping_handler", handler)
}
