// FilePath: api/resources/api.resource.alerts.go
package resources

import (
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/hubservice"
	"github.com/spoilsense/spoilsense/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// AlertHandlers encapsulates the alert-related HTTP handlers
type AlertHandlers struct {
	hubservice *hubservice.HubService
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(value string) reflect.Value {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})
	return d
}

// @Summary List alerts
// @Description Get a paginated list of alerts, optionally filtered by device, kind, resolution state and time
// @Tags alerts
// @Produce json
// @Param device_id query string false "Filter by device ID"
// @Param kind query string false "Filter by alert kind (warning or spoiled)"
// @Param unresolved query bool false "Only unresolved alerts"
// @Param since query string false "Only alerts at or after this time (RFC3339)"
// @Param offset query int false "Offset for pagination"
// @Param limit query int false "Limit for pagination"
// @Success 200 {array} models.Alert
// @Failure 400 {object} errors.APIError
// @Router /alerts [get]
func (h *AlertHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	offset, limit := getPaginationParams(r)

	var filters models.AlertFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	alerts, err := h.hubservice.ListAlerts(r.Context(), filters, offset, limit)
	if err != nil {
		if errors.IsValidation(err) {
			respondWithError(w, errors.NewValidationError("invalid alert filters", err).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to list alerts", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, alerts)
}

// @Summary Resolve device alerts
// @Description Mark unresolved alerts for a device as resolved. An empty kind resolves both kinds.
// @Tags alerts
// @Produce json
// @Param id path string true "Device ID"
// @Param kind query string false "Alert kind to resolve (warning or spoiled)"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/alerts/resolve [post]
// @Security BearerAuth
func (h *AlertHandlers) ResolveAlerts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)
	kind := models.AlertKind(r.URL.Query().Get("kind"))

	resolved, err := h.hubservice.ResolveAlerts(r.Context(), id, kind)
	if err != nil {
		if errors.IsNotFound(err) {
			respondWithError(w, errors.NewNotFoundError("device not found", err).WithRequestID(requestID))
			return
		}
		if errors.IsValidation(err) {
			respondWithError(w, errors.NewValidationError("invalid alert kind", err).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to resolve alerts", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int64{"resolved": resolved})
}
