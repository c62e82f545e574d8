// FilePath: api/resources/api.resource.readings.go
package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spoilsense/spoilsense/internal/errors"
	"github.com/spoilsense/spoilsense/internal/hubservice"
	"github.com/spoilsense/spoilsense/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// ReadingHandlers encapsulates the reading-related HTTP handlers
type ReadingHandlers struct {
	hubservice *hubservice.HubService
}

// IngestResponse is returned after a pushed reading has been processed.
type IngestResponse struct {
	Reading      *models.Reading `json:"reading"`
	AlertOutcome string          `json:"alert_outcome"`
}

// @Summary Ingest a sensor reading
// @Description Accept a raw reading payload pushed by a device, normalize and evaluate it
// @Tags readings
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param reading body object true "Raw reading payload"
// @Success 201 {object} resources.IngestResponse
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/readings [post]
// @Security BearerAuth
func (h *ReadingHandlers) IngestReading(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var raw map[string]interface{}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	reading, decision, err := h.hubservice.ProcessRaw(r.Context(), id, raw, "push")
	if err != nil {
		if errors.IsNotFound(err) {
			respondWithError(w, errors.NewNotFoundError("device not found", err).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to process reading", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, IngestResponse{
		Reading:      reading,
		AlertOutcome: string(decision.Outcome),
	})
}

// @Summary Get the latest reading
// @Description Get the most recent reading for a device
// @Tags readings
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} models.Reading
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/latest [get]
func (h *ReadingHandlers) GetLatestReading(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	reading, err := h.hubservice.GetLatestReading(r.Context(), id)
	if err != nil {
		respondWithError(w, errors.NewNotFoundError("no readings for device", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, reading)
}

// @Summary Get reading history
// @Description Get readings for a device over a trailing window of hours
// @Tags readings
// @Produce json
// @Param id path string true "Device ID"
// @Param hours query int false "Window in hours (default 24)"
// @Param limit query int false "Maximum number of readings (default 1000)"
// @Success 200 {array} models.Reading
// @Failure 400 {object} errors.APIError
// @Router /devices/{id}/readings [get]
func (h *ReadingHandlers) GetReadingHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var query models.ReadingQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	readings, err := h.hubservice.GetReadingHistory(r.Context(), id, query.Hours, query.Limit)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to get reading history", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary Get reading aggregates
// @Description Get bucketed ratio statistics for a device
// @Tags readings
// @Produce json
// @Param id path string true "Device ID"
// @Param start query string false "Start time (RFC3339, default 24h ago)"
// @Param end query string false "End time (RFC3339, default now)"
// @Param interval query string false "Bucket interval: hour or day (default hour)"
// @Success 200 {array} models.ReadingAggregate
// @Failure 400 {object} errors.APIError
// @Router /devices/{id}/aggregates [get]
func (h *ReadingHandlers) GetReadingAggregates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)
	query := r.URL.Query()

	end := time.Now().UTC()
	if v := query.Get("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, errors.NewValidationError("invalid end time", err).WithRequestID(requestID))
			return
		}
		end = parsed
	}

	start := end.Add(-24 * time.Hour)
	if v := query.Get("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(w, errors.NewValidationError("invalid start time", err).WithRequestID(requestID))
			return
		}
		start = parsed
	}

	interval := query.Get("interval")
	if interval == "" {
		interval = "hour"
	}

	aggregates, err := h.hubservice.GetReadingAggregates(r.Context(), id, start, end, interval)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to get aggregates", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, aggregates)
}
