// FilePath: internal/hubservice/hubservice.alert.go
package hubservice

import (
	"context"

	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// ListAlerts retrieves a paginated list of alerts matching the filters.
func (s *HubService) ListAlerts(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	if filters.Kind != "" && !filters.Kind.Valid() {
		return nil, errors.NewValidationError("invalid alert kind: "+string(filters.Kind), nil)
	}

	return s.Alerts.List(ctx, filters, offset, limit)
}

// ResolveAlerts manually resolves unresolved alerts for a device. An
// empty kind resolves alerts of both kinds. Returns the number of
// alerts resolved.
func (s *HubService) ResolveAlerts(ctx context.Context, deviceID string, kind models.AlertKind) (int64, error) {
	if _, err := s.Devices.Get(ctx, deviceID); err != nil {
		return 0, err
	}

	if kind != "" && !kind.Valid() {
		return 0, errors.NewValidationError("invalid alert kind: "+string(kind), nil)
	}

	resolved, err := s.Alerts.ResolveAll(ctx, deviceID, kind)
	if err != nil {
		return 0, err
	}

	if resolved > 0 {
		nuts.L.Infof("[AlertService] Manually resolved %d alerts for device %s", resolved, deviceID)
	}
	return resolved, nil
}
