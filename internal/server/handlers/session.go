// internal/server/handlers/session.go

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"livetrack/internal/domain/session"
)

// SessionHandler handles session watch-list requests
type SessionHandler struct {
	service session.Service
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service session.Service, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// GetSession returns a session, creating an empty one on first access
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Get(r.Context(), urlParam(r, "sessionId"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to load session", err)
		return
	}

	respondWithJSON(w, http.StatusOK, sess)
}

// UpdateSession replaces the watch-list of a session
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackedUsers json.RawMessage `json:"trackedUsers"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	raw := bytes.TrimSpace(body.TrackedUsers)
	if len(raw) == 0 || raw[0] != '[' {
		respondWithError(w, http.StatusBadRequest, "trackedUsers must be an array", nil)
		return
	}

	var users []session.TrackedUser
	if err := json.Unmarshal(raw, &users); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid trackedUsers entry", err)
		return
	}

	sess, err := h.service.Replace(r.Context(), urlParam(r, "sessionId"), users)
	if err != nil {
		respondWithServiceError(w, r, h.logger, "Failed to update session", err)
		return
	}

	respondWithJSON(w, http.StatusOK, sess)
}
