// FilePath: internal/hubservice/hubservice_test.go
package hubservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spoilsense/spoilsense/internal/alerting"
	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/repository"
)

type fakeBase struct{}

func (fakeBase) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, errors.New("transactions not supported in fake")
}

type fakeDeviceRepo struct {
	fakeBase
	devices map[string]*models.Device
}

func newFakeDeviceRepo(devices ...*models.Device) *fakeDeviceRepo {
	r := &fakeDeviceRepo{devices: map[string]*models.Device{}}
	for _, d := range devices {
		r.devices[d.ID] = d
	}
	return r
}

func (r *fakeDeviceRepo) Create(_ context.Context, device *models.Device) error {
	r.devices[device.ID] = device
	return nil
}

func (r *fakeDeviceRepo) Get(_ context.Context, id string) (*models.Device, error) {
	device, ok := r.devices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *device
	return &copied, nil
}

func (r *fakeDeviceRepo) Update(_ context.Context, device *models.Device) error {
	r.devices[device.ID] = device
	return nil
}

func (r *fakeDeviceRepo) Delete(_ context.Context, id string) error {
	delete(r.devices, id)
	return nil
}

func (r *fakeDeviceRepo) List(_ context.Context, offset, limit int) ([]*models.Device, error) {
	var out []*models.Device
	for _, d := range r.devices {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeDeviceRepo) ListActive(_ context.Context) ([]*models.Device, error) {
	var out []*models.Device
	for _, d := range r.devices {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) UpdateLastSeen(_ context.Context, id string, lastSeen time.Time) error {
	if d, ok := r.devices[id]; ok {
		d.LastSeen = lastSeen
		return nil
	}
	return repository.ErrNotFound
}

func (r *fakeDeviceRepo) UpdateLastReading(_ context.Context, id string, lastReading time.Time) error {
	if d, ok := r.devices[id]; ok {
		d.LastReadingAt = lastReading
		return nil
	}
	return repository.ErrNotFound
}

type fakeReadingRepo struct {
	fakeBase
	readings  []*models.Reading
	insertErr error
}

func (r *fakeReadingRepo) Insert(_ context.Context, reading *models.Reading) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.readings = append(r.readings, reading)
	return nil
}

func (r *fakeReadingRepo) GetHistory(_ context.Context, deviceID string, since time.Time, limit int) ([]models.Reading, error) {
	var out []models.Reading
	for i := len(r.readings) - 1; i >= 0 && len(out) < limit; i-- {
		reading := r.readings[i]
		if reading.DeviceID == deviceID && !reading.Timestamp.Before(since) {
			out = append(out, *reading)
		}
	}
	return out, nil
}

func (r *fakeReadingRepo) GetLatest(_ context.Context, deviceID string) (*models.Reading, error) {
	for i := len(r.readings) - 1; i >= 0; i-- {
		if r.readings[i].DeviceID == deviceID {
			copied := *r.readings[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeReadingRepo) GetAggregates(_ context.Context, deviceID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	return nil, nil
}

func (r *fakeReadingRepo) GetStats(_ context.Context, deviceID string, since time.Time) (*models.ReadingStats, error) {
	stats := &models.ReadingStats{DeviceID: deviceID}
	for _, reading := range r.readings {
		if reading.DeviceID != deviceID || reading.Timestamp.Before(since) {
			continue
		}
		if stats.ReadingCount == 0 || reading.Ratio < stats.MinRatio {
			stats.MinRatio = reading.Ratio
		}
		if reading.Ratio > stats.MaxRatio {
			stats.MaxRatio = reading.Ratio
		}
		stats.AvgRatio += reading.Ratio
		stats.ReadingCount++
		if reading.IsAlert {
			stats.AlertCount++
		}
	}
	if stats.ReadingCount > 0 {
		stats.AvgRatio /= float64(stats.ReadingCount)
	}
	return stats, nil
}

func (r *fakeReadingRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeReadingRepo) DeleteByDevice(_ context.Context, deviceID string) error {
	return nil
}

type fakeAlertRepo struct {
	fakeBase
	alerts []*models.Alert
}

func (r *fakeAlertRepo) Insert(ctx context.Context, alert *models.Alert, since time.Time) error {
	if existing, _ := r.FindActive(ctx, alert.DeviceID, alert.Kind, since); existing != nil {
		return repository.ErrDuplicate
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *fakeAlertRepo) FindActive(_ context.Context, deviceID string, kind models.AlertKind, since time.Time) (*models.Alert, error) {
	for i := len(r.alerts) - 1; i >= 0; i-- {
		a := r.alerts[i]
		if a.DeviceID == deviceID && a.Kind == kind && !a.IsResolved && !a.Timestamp.Before(since) {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAlertRepo) ResolveAll(_ context.Context, deviceID string, kind models.AlertKind) (int64, error) {
	var count int64
	for _, a := range r.alerts {
		if a.DeviceID == deviceID && !a.IsResolved && (kind == "" || a.Kind == kind) {
			a.IsResolved = true
			count++
		}
	}
	return count, nil
}

func (r *fakeAlertRepo) List(_ context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range r.alerts {
		if filters.DeviceID != "" && a.DeviceID != filters.DeviceID {
			continue
		}
		if filters.Kind != "" && a.Kind != filters.Kind {
			continue
		}
		if filters.Unresolved && a.IsResolved {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAlertRepo) DeleteResolvedBefore(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeAlertRepo) DeleteByDevice(_ context.Context, deviceID string) error {
	return nil
}

type recordingNotifier struct {
	calls []string
}

func (n *recordingNotifier) Send(_ context.Context, recipient, contextText string) (string, error) {
	n.calls = append(n.calls, recipient)
	return "CA42", nil
}

func testService(devices *fakeDeviceRepo, readings *fakeReadingRepo, alerts *fakeAlertRepo, notifier *recordingNotifier) *HubService {
	cfg := config.AlertingConfig{
		RatioFresh:      0.8,
		RatioWarning:    0.5,
		CooldownSpoiled: 30 * time.Minute,
		CooldownWarning: 60 * time.Minute,
	}
	var n alerting.Notifier
	if notifier != nil {
		n = notifier
	}
	return New(devices, readings, alerts, nil, n, cfg, config.RetentionConfig{MaxAge: 720 * time.Hour})
}

func TestProcessRawPipeline(t *testing.T) {
	devices := newFakeDeviceRepo(&models.Device{ID: "dev_1", Name: "fridge", PhoneNumber: "+4912345", IsActive: true})
	readings := &fakeReadingRepo{}
	alerts := &fakeAlertRepo{}
	notifier := &recordingNotifier{}
	svc := testService(devices, readings, alerts, notifier)

	raw := map[string]interface{}{"Ro": 500000.0, "Rs": 200000.0, "status": "ok"}
	reading, decision, err := svc.ProcessRaw(context.Background(), "dev_1", raw, "poll")
	if err != nil {
		t.Fatalf("ProcessRaw: %v", err)
	}

	if reading.ID == "" {
		t.Error("reading ID not assigned")
	}
	if reading.Ratio != 0.4 {
		t.Errorf("ratio = %v, want 0.4", reading.Ratio)
	}
	if !reading.IsAlert {
		t.Error("reading below warning threshold not flagged as alert")
	}
	if len(readings.readings) != 1 {
		t.Fatalf("persisted readings = %d, want 1", len(readings.readings))
	}
	if decision.Outcome != "created" {
		t.Errorf("outcome = %v, want created", decision.Outcome)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "+4912345" {
		t.Errorf("notifier calls = %v, want device phone number", notifier.calls)
	}
	if devices.devices["dev_1"].LastReadingAt.IsZero() {
		t.Error("device last reading time not updated")
	}
}

func TestProcessRawUnknownDevice(t *testing.T) {
	svc := testService(newFakeDeviceRepo(), &fakeReadingRepo{}, &fakeAlertRepo{}, nil)

	_, _, err := svc.ProcessRaw(context.Background(), "missing", map[string]interface{}{}, "push")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestProcessRawStoreFailureAborts(t *testing.T) {
	devices := newFakeDeviceRepo(&models.Device{ID: "dev_1", IsActive: true})
	readings := &fakeReadingRepo{insertErr: errors.New("disk full")}
	alerts := &fakeAlertRepo{}
	svc := testService(devices, readings, alerts, nil)

	_, _, err := svc.ProcessRaw(context.Background(), "dev_1", map[string]interface{}{"ratio": 0.3}, "push")
	if err == nil {
		t.Fatal("expected error when reading store fails")
	}
	if len(alerts.alerts) != 0 {
		t.Error("alert evaluated despite failed persistence")
	}
}

func TestCreateDeviceDefaults(t *testing.T) {
	devices := newFakeDeviceRepo()
	svc := testService(devices, &fakeReadingRepo{}, &fakeAlertRepo{}, nil)

	device := &models.Device{Name: "pantry sensor"}
	if err := svc.CreateDevice(context.Background(), device); err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	if device.ID == "" {
		t.Error("device ID not generated")
	}
	if !device.IsActive {
		t.Error("new device not active")
	}
	if device.CreatedAt.IsZero() || device.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestCreateDeviceRequiresName(t *testing.T) {
	svc := testService(newFakeDeviceRepo(), &fakeReadingRepo{}, &fakeAlertRepo{}, nil)

	if err := svc.CreateDevice(context.Background(), &models.Device{}); err == nil {
		t.Error("expected validation error for missing name")
	}
}

func TestResolveAlertsRejectsUnknownKind(t *testing.T) {
	devices := newFakeDeviceRepo(&models.Device{ID: "dev_1"})
	svc := testService(devices, &fakeReadingRepo{}, &fakeAlertRepo{}, nil)

	if _, err := svc.ResolveAlerts(context.Background(), "dev_1", "bogus"); err == nil {
		t.Error("expected validation error for unknown kind")
	}
}

func TestResolveAlertsCounts(t *testing.T) {
	devices := newFakeDeviceRepo(&models.Device{ID: "dev_1"})
	alerts := &fakeAlertRepo{alerts: []*models.Alert{
		{ID: "al_1", DeviceID: "dev_1", Kind: models.AlertKindSpoiled, Timestamp: time.Now()},
		{ID: "al_2", DeviceID: "dev_1", Kind: models.AlertKindWarning, Timestamp: time.Now()},
		{ID: "al_3", DeviceID: "dev_2", Kind: models.AlertKindWarning, Timestamp: time.Now()},
	}}
	svc := testService(devices, &fakeReadingRepo{}, alerts, nil)

	resolved, err := svc.ResolveAlerts(context.Background(), "dev_1", "")
	if err != nil {
		t.Fatalf("ResolveAlerts: %v", err)
	}
	if resolved != 2 {
		t.Errorf("resolved = %d, want 2", resolved)
	}
}

func TestGetDailyReport(t *testing.T) {
	now := time.Now().UTC()
	devices := newFakeDeviceRepo(&models.Device{ID: "dev_1"})
	readings := &fakeReadingRepo{readings: []*models.Reading{
		{DeviceID: "dev_1", Ratio: 0.4, IsAlert: true, Timestamp: now.Add(-2 * time.Hour)},
		{DeviceID: "dev_1", Ratio: 0.9, Timestamp: now.Add(-1 * time.Hour)},
		{DeviceID: "dev_1", Ratio: 1.0, Timestamp: now.Add(-48 * time.Hour)}, // outside window
	}}
	svc := testService(devices, readings, &fakeAlertRepo{}, nil)

	report, err := svc.GetDailyReport(context.Background(), "dev_1")
	if err != nil {
		t.Fatalf("GetDailyReport: %v", err)
	}
	if report.ReadingStats.ReadingCount != 2 {
		t.Errorf("reading count = %d, want 2", report.ReadingStats.ReadingCount)
	}
	if report.ReadingStats.AlertCount != 1 {
		t.Errorf("alert count = %d, want 1", report.ReadingStats.AlertCount)
	}
	if report.ReadingStats.MinRatio != 0.4 || report.ReadingStats.MaxRatio != 0.9 {
		t.Errorf("min/max = %v/%v, want 0.4/0.9", report.ReadingStats.MinRatio, report.ReadingStats.MaxRatio)
	}
}

func TestGetLatestReadingFallsBackToStore(t *testing.T) {
	devices := newFakeDeviceRepo(&models.Device{ID: "dev_1"})
	readings := &fakeReadingRepo{readings: []*models.Reading{
		{ID: "rd_1", DeviceID: "dev_1", Ratio: 0.7, Timestamp: time.Now()},
	}}
	svc := testService(devices, readings, &fakeAlertRepo{}, nil)

	reading, err := svc.GetLatestReading(context.Background(), "dev_1")
	if err != nil {
		t.Fatalf("GetLatestReading: %v", err)
	}
	if reading.ID != "rd_1" {
		t.Errorf("reading = %+v, want rd_1", reading)
	}
}
