// FilePath: internal/collector/collector_test.go
package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/database"
	"github.com/spoilsense/spoilsense/internal/hubservice"
	"github.com/spoilsense/spoilsense/internal/models"
	"github.com/spoilsense/spoilsense/internal/repository"
)

type stubBase struct{}

func (stubBase) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, errors.New("transactions not supported in stub")
}

type stubDeviceRepo struct {
	stubBase
	devices []*models.Device
}

func (r *stubDeviceRepo) Create(_ context.Context, device *models.Device) error { return nil }

func (r *stubDeviceRepo) Get(_ context.Context, id string) (*models.Device, error) {
	for _, d := range r.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubDeviceRepo) Update(_ context.Context, device *models.Device) error { return nil }
func (r *stubDeviceRepo) Delete(_ context.Context, id string) error             { return nil }

func (r *stubDeviceRepo) List(_ context.Context, offset, limit int) ([]*models.Device, error) {
	return r.devices, nil
}

func (r *stubDeviceRepo) ListActive(_ context.Context) ([]*models.Device, error) {
	return r.devices, nil
}

func (r *stubDeviceRepo) UpdateLastSeen(_ context.Context, id string, lastSeen time.Time) error {
	return nil
}

func (r *stubDeviceRepo) UpdateLastReading(_ context.Context, id string, lastReading time.Time) error {
	return nil
}

// blockingReadingRepo hangs every Insert until the caller's context is
// canceled, simulating a stuck reading store.
type blockingReadingRepo struct {
	stubBase
}

func (r *blockingReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *blockingReadingRepo) GetHistory(_ context.Context, deviceID string, since time.Time, limit int) ([]models.Reading, error) {
	return nil, nil
}

func (r *blockingReadingRepo) GetLatest(_ context.Context, deviceID string) (*models.Reading, error) {
	return nil, repository.ErrNotFound
}

func (r *blockingReadingRepo) GetAggregates(_ context.Context, deviceID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	return nil, nil
}

func (r *blockingReadingRepo) GetStats(_ context.Context, deviceID string, since time.Time) (*models.ReadingStats, error) {
	return &models.ReadingStats{}, nil
}

func (r *blockingReadingRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *blockingReadingRepo) DeleteByDevice(_ context.Context, deviceID string) error { return nil }

type stubAlertRepo struct {
	stubBase
}

func (r *stubAlertRepo) Insert(_ context.Context, alert *models.Alert, since time.Time) error {
	return nil
}

func (r *stubAlertRepo) FindActive(_ context.Context, deviceID string, kind models.AlertKind, since time.Time) (*models.Alert, error) {
	return nil, nil
}

func (r *stubAlertRepo) ResolveAll(_ context.Context, deviceID string, kind models.AlertKind) (int64, error) {
	return 0, nil
}

func (r *stubAlertRepo) List(_ context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	return nil, nil
}

func (r *stubAlertRepo) DeleteResolvedBefore(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *stubAlertRepo) DeleteByDevice(_ context.Context, deviceID string) error { return nil }

func TestCollectAllBoundedByCollectTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Ro": 500000, "Rs": 250000}`))
	}))
	defer srv.Close()

	devices := &stubDeviceRepo{devices: []*models.Device{
		{ID: "dev_1", Name: "fridge", URL: srv.URL, IsActive: true},
	}}
	svc := hubservice.New(devices, &blockingReadingRepo{}, &stubAlertRepo{}, nil, nil,
		config.AlertingConfig{RatioFresh: 0.8, RatioWarning: 0.5, CooldownSpoiled: 30 * time.Minute, CooldownWarning: time.Hour},
		config.RetentionConfig{})

	c := New(svc, config.CollectorConfig{
		RequestTimeout: time.Second,
		CollectTimeout: 100 * time.Millisecond,
	})

	// A pass against a stuck reading store must still finish within the
	// collect timeout instead of blocking the polling loop forever.
	done := make(chan struct{})
	go func() {
		c.collectAll(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collection pass not released by collect timeout")
	}
}

func TestNewCollectorDefaults(t *testing.T) {
	c := New(nil, config.CollectorConfig{})
	if c.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s default", c.interval)
	}
	if c.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", c.timeout)
	}
}
