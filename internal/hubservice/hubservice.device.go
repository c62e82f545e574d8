// FilePath: internal/hubservice/hubservice.device.go
package hubservice

import (
	"context"
	"time"

	"github.com/itsatony/struccy"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// DeviceService handles sensor-device business logic
type DeviceService interface {
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	UpdateDevice(ctx context.Context, device *models.Device) error
	DeleteDevice(ctx context.Context, id string) error
	ListDevices(ctx context.Context, offset, limit int) ([]*models.Device, error)
	GetDeviceStatus(ctx context.Context, id string) (*DeviceStatus, error)
}

type DeviceStatus struct {
	Device        *models.Device  `json:"device"`
	LatestReading *models.Reading `json:"latest_reading"`
	OnlineStatus  string          `json:"online_status"`
	LastActivity  time.Time       `json:"last_activity"`
}

// CreateDevice creates a new device with proper validation and initialization
func (s *HubService) CreateDevice(ctx context.Context, device *models.Device) error {
	// Validate required fields
	if device.Name == "" {
		return errors.NewValidationError("device name is required", nil)
	}

	// Generate new ID if not provided
	if device.ID == "" {
		device.ID = nuts.NID("dev", 12)
	}

	// Set timestamps
	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now
	device.LastSeen = now
	device.IsActive = true

	nuts.L.Infof("[DeviceService] Creating new device: %s (%s)", device.Name, device.ID)
	return s.Devices.Create(ctx, device)
}

// UpdateDevice updates an existing device with role-based access control
func (s *HubService) UpdateDevice(ctx context.Context, device *models.Device) error {
	// Get existing device to verify existence and compare changes
	existing, err := s.Devices.Get(ctx, device.ID)
	if err != nil {
		return err
	}

	// Get user roles from context
	roles := GetUserRoles(ctx)

	// Use struccy to update fields based on role access
	updatedFields, _, err := struccy.UpdateStructFields(existing, device, roles, true, true)
	if err != nil {
		return errors.NewAuthorizationError("unauthorized field update", err)
	}

	device.UpdatedAt = time.Now()

	nuts.L.Infof("[DeviceService] Updating device %s, fields changed: %v", device.ID, updatedFields)
	return s.Devices.Update(ctx, device)
}

// GetDevice retrieves a device with role-based field filtering
func (s *HubService) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Get user roles from context
	roles := GetUserRoles(ctx)

	// Filter fields based on read access
	filteredMap, err := struccy.StructToMapFieldsWithReadXS(device, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to filter device fields", err)
	}
	filtered := &models.Device{}
	_, err = struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to map filtered fields to device struct", err)
	}

	return filtered, nil
}

// DeleteDevice handles device deletion with cascading cleanup of readings
// and alerts.
func (s *HubService) DeleteDevice(ctx context.Context, id string) error {
	// Verify existence before starting the cascade
	if _, err := s.Devices.Get(ctx, id); err != nil {
		return err
	}

	nuts.L.Infof("[DeviceService] Deleting device: %s", id)
	return s.Housekeeping.DeleteDevice(ctx, id)
}

// ListDevices retrieves a paginated list of devices with role-based filtering
func (s *HubService) ListDevices(ctx context.Context, offset, limit int) ([]*models.Device, error) {
	if limit <= 0 || limit > 100 {
		limit = 50 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	devices, err := s.Devices.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	roles := GetUserRoles(ctx)
	filtered := make([]*models.Device, 0, len(devices))

	for _, device := range devices {
		filteredMap, err := struccy.StructToMapFieldsWithReadXS(device, roles)
		if err != nil {
			nuts.L.Warnf("[DeviceService] Failed to filter device %s: %v", device.ID, err)
			continue
		}
		filteredDevice := &models.Device{}
		_, err = struccy.MergeMapStringFieldsToStruct(filteredDevice, filteredMap, roles)
		if err != nil {
			nuts.L.Warnf("[DeviceService] Failed to map filtered fields to device struct %s: %v", device.ID, err)
			continue
		}
		filtered = append(filtered, filteredDevice)
	}

	return filtered, nil
}

// ListActiveDevices returns unfiltered active devices for internal use by
// the collector.
func (s *HubService) ListActiveDevices(ctx context.Context) ([]*models.Device, error) {
	return s.Devices.ListActive(ctx)
}

// GetDeviceStatus retrieves comprehensive device status information
func (s *HubService) GetDeviceStatus(ctx context.Context, id string) (*DeviceStatus, error) {
	device, err := s.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	reading, err := s.GetLatestReading(ctx, id)
	if err != nil {
		nuts.L.Warnf("[DeviceService] Failed to get latest reading for device %s: %v", id, err)
		reading = nil
	}

	now := time.Now()
	lastActivity := device.LastSeen
	if device.LastReadingAt.After(lastActivity) {
		lastActivity = device.LastReadingAt
	}

	return &DeviceStatus{
		Device:        device,
		LatestReading: reading,
		OnlineStatus:  device.OnlineStatus(now),
		LastActivity:  lastActivity,
	}, nil
}

// UpdateDeviceLastSeen updates the last seen timestamp for a device
func (s *HubService) UpdateDeviceLastSeen(ctx context.Context, id string) error {
	return s.Devices.UpdateLastSeen(ctx, id, time.Now())
}

// GetUserRoles retrieves user roles from context as set by the auth
// middleware.
func GetUserRoles(ctx context.Context) []string {
	if roles := ctx.Value("user_roles"); roles != nil {
		if r, ok := roles.([]string); ok {
			return r
		}
	}
	return []string{"guest"}
}
