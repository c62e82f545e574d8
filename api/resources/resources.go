// FilePath: api/resources/resources.go
package resources

import (
	"net/http"

	"github.com/spoilsense/spoilsense/internal/hubservice"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Devices     *DeviceHandlers
	Readings    *ReadingHandlers
	Alerts      *AlertHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	return &Resources{
		Devices:  &DeviceHandlers{hubservice: svc},
		Readings: &ReadingHandlers{hubservice: svc},
		Alerts:   &AlertHandlers{hubservice: svc},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}
