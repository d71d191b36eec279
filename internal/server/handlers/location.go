// internal/server/handlers/location.go

package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"livetrack/internal/domain/location"
)

const maxBodyBytes = 1 << 20

// LocationHandler handles location ingest and query requests
type LocationHandler struct {
	ingestor location.Ingestor
	querier  location.Querier
	logger   *zap.Logger
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(ingestor location.Ingestor, querier location.Querier, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		ingestor: ingestor,
		querier:  querier,
		logger:   logger,
	}
}

// PostLocation ingests a single fix
func (h *LocationHandler) PostLocation(w http.ResponseWriter, r *http.Request) {
	var in location.FixInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	fix, err := h.ingestor.Ingest(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to save location", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, fix)
}

// GetLatest returns the latest fix of a track
func (h *LocationHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	trackID := urlParam(r, "trackId")

	pos, err := h.querier.Latest(r.Context(), trackID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "No location found for track", err)
		return
	}

	respondWithJSON(w, http.StatusOK, pos)
}

// GetPath returns the recent path of a track
func (h *LocationHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	trackID := urlParam(r, "trackId")
	hours := parseHours(r)

	points, err := h.querier.Path(r.Context(), trackID, hours)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to load path", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"trackId": trackID,
		"points":  points,
		"count":   len(points),
	})
}

// GetActiveTracks lists tracks that reported an active fix recently
func (h *LocationHandler) GetActiveTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.querier.ActiveTracks(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to load active tracks", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(tracks),
		"tracks": tracks,
	})
}

// Cleanup deletes fixes older than the requested number of hours
func (h *LocationHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.querier.Cleanup(r.Context(), parseHours(r))
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to clean up locations", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"deletedCount": deleted,
	})
}

// parseHours reads the hours query parameter. Absent or malformed values
// yield NaN so the service falls back to its default window.
func parseHours(r *http.Request) float64 {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return math.NaN()
	}

	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}

	return hours
}
