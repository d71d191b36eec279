// internal/server/handlers/health.go

package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is a dependency whose connectivity can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// TrackCounter reports how many tracks currently have subscribers
type TrackCounter interface {
	ActiveTrackCount() int
}

// HealthHandler reports process and storage health
type HealthHandler struct {
	storage []Pinger
	counter TrackCounter
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler. Storage is reported as
// connected only when every pinger answers.
func NewHealthHandler(counter TrackCounter, logger *zap.Logger, storage ...Pinger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		counter: counter,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// GetHealth always answers 200 while the process serves requests
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	connected := true
	for _, p := range h.storage {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Health check ping failed", zap.Error(err))
			connected = false
			break
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"storageConnected": connected,
		"activeTrackCount": h.counter.ActiveTrackCount(),
		"timestamp":        time.Now().UTC(),
	})
}
