// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"livetrack/internal/domain/apperr"
)

// errorResponse is the body of every failed API call
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses. Server errors carry the underlying error as details.
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := errorResponse{Error: message}
	if err != nil && code >= 500 {
		response.Details = err.Error()
	}

	respondWithJSON(w, code, response)
}

// respondWithServiceError maps the error taxonomy onto HTTP status codes
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, message string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		respondWithError(w, http.StatusNotFound, message, err)
	case apperr.IsValidation(err):
		respondWithError(w, http.StatusBadRequest, err.Error(), err)
	default:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondWithError(w, http.StatusInternalServerError, message, err)
	}
}
