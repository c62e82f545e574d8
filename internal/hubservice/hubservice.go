// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"github.com/spoilsense/spoilsense/internal/alerting"
	"github.com/spoilsense/spoilsense/internal/cache"
	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/housekeeping"
	"github.com/spoilsense/spoilsense/internal/normalize"
	"github.com/spoilsense/spoilsense/internal/repository"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Devices      repository.DeviceRepository
	Readings     repository.ReadingRepository
	Alerts       repository.AlertRepository
	Cache        *cache.ReadingCache
	Engine       *alerting.Engine
	Normalizer   *normalize.Normalizer
	Housekeeping *housekeeping.Service

	alertCfg config.AlertingConfig
}

// New creates a new HubService instance. The notifier may be nil when
// voice alerting is not configured.
func New(
	devices repository.DeviceRepository,
	readings repository.ReadingRepository,
	alerts repository.AlertRepository,
	readingCache *cache.ReadingCache,
	notifier alerting.Notifier,
	alertCfg config.AlertingConfig,
	retentionCfg config.RetentionConfig,
) *HubService {
	svc := &HubService{
		Devices:    devices,
		Readings:   readings,
		Alerts:     alerts,
		Cache:      readingCache,
		Normalizer: normalize.New(nil),
		alertCfg:   alertCfg,
	}
	svc.Engine = alerting.NewEngine(alertCfg, alerts, notifier, nil)
	svc.Housekeeping = housekeeping.New(devices, readings, alerts, retentionCfg)
	return svc
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Readings == nil {
		return ErrMissingRepository("readings")
	}
	if s.Alerts == nil {
		return ErrMissingRepository("alerts")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
