// FilePath: internal/collector/collector.go

// Package collector polls registered devices on a fixed interval and
// feeds their status payloads through the ingestion pipeline.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/hubservice"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/monitoring"
	nuts "github.com/vaudience/go-nuts"
)

// Collector schedules one collection pass per poll interval. Devices are
// fetched concurrently within a pass, but each device's readings are
// evaluated serially because passes for one device do not overlap within
// a tick; the alert store's conditional insert covers the rest.
type Collector struct {
	svc      *hubservice.HubService
	client   *DeviceClient
	interval time.Duration
	timeout  time.Duration
}

func New(svc *hubservice.HubService, cfg config.CollectorConfig) *Collector {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := cfg.CollectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Collector{
		svc:      svc,
		client:   NewDeviceClient(cfg.RequestTimeout),
		interval: interval,
		timeout:  timeout,
	}
}

// Run polls until the context is canceled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	nuts.L.Infof("[Collector] Polling devices every %v", c.interval)
	for {
		select {
		case <-ctx.Done():
			nuts.L.Infof("[Collector] Stopped")
			return
		case <-ticker.C:
			c.collectAll(ctx)
		}
	}
}

func (c *Collector) collectAll(ctx context.Context) {
	devices, err := c.svc.ListActiveDevices(ctx)
	if err != nil {
		nuts.L.Errorf("[Collector] Failed to list active devices: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, device := range devices {
		if device.URL == "" {
			continue
		}
		wg.Add(1)
		go func(device *models.Device) {
			defer wg.Done()
			// Each device gets a bounded context so one hung fetch or
			// store call cannot stall the polling loop.
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			c.collectDevice(cctx, device)
		}(device)
	}
	wg.Wait()
}

// collectDevice fetches one device's status and runs it through the
// pipeline. Fetch failures are logged and skipped; the next tick retries.
func (c *Collector) collectDevice(ctx context.Context, device *models.Device) {
	start := time.Now()
	raw, err := c.client.FetchStatus(ctx, device.URL)
	monitoring.PollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.PollsTotal.WithLabelValues("failed").Inc()
		nuts.L.Warnf("[Collector] Failed to fetch device %s: %v", device.ID, err)
		return
	}
	monitoring.PollsTotal.WithLabelValues("success").Inc()

	if err := c.svc.UpdateDeviceLastSeen(ctx, device.ID); err != nil {
		nuts.L.Warnf("[Collector] Failed to update last seen for device %s: %v", device.ID, err)
	}

	if _, _, err := c.svc.ProcessRaw(ctx, device.ID, raw, "poll"); err != nil {
		nuts.L.Errorf("[Collector] Failed to process reading for device %s: %v", device.ID, err)
	}
}
