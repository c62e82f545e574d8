// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spoilsense/spoilsense/api/middleware"
	"github.com/spoilsense/spoilsense/api/resources"
	"github.com/spoilsense/spoilsense/internal/hubservice"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.KeycloakMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, keycloakConfig middleware.KeycloakConfig) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewKeycloakMiddleware(keycloakConfig),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/metrics", r.resources.Metrics).Methods(http.MethodGet)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Devices
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("", r.resources.Devices.CreateDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{id}", r.resources.Devices.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{id}", r.resources.Devices.UpdateDevice).Methods(http.MethodPut)
	devices.HandleFunc("/{id}", r.resources.Devices.DeleteDevice).Methods(http.MethodDelete)
	devices.HandleFunc("/{id}/status", r.resources.Devices.GetDeviceStatus).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/report", r.resources.Devices.GetDailyReport).Methods(http.MethodGet)

	// Readings
	devices.HandleFunc("/{id}/readings", r.resources.Readings.GetReadingHistory).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/readings", r.resources.Readings.IngestReading).Methods(http.MethodPost)
	devices.HandleFunc("/{id}/latest", r.resources.Readings.GetLatestReading).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/aggregates", r.resources.Readings.GetReadingAggregates).Methods(http.MethodGet)

	// Alerts
	devices.HandleFunc("/{id}/alerts/resolve", r.resources.Alerts.ResolveAlerts).Methods(http.MethodPost)
	alerts := protected.PathPrefix("/alerts").Subrouter()
	alerts.HandleFunc("", r.resources.Alerts.ListAlerts).Methods(http.MethodGet)
}

// Resources exposes the handler set so the server can attach the health
// and metrics handlers.
func (r *Router) Resources() *resources.Resources {
	return r.resources
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
