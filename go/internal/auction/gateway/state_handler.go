package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/rs/zerolog/log"
)

// StateProvider returns the room state as seen by the coordinator
type StateProvider interface {
	Snapshot(ctx context.Context) (coordinator.Snapshot, error)
}

// StateHandler handles HTTP requests for room state
type StateHandler struct {
	stateProvider StateProvider
	timeout       time.Duration
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		timeout:       5 * time.Second,
	}
}

// HandleGetRoomState handles GET /api/room/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	state, err := h.stateProvider.Snapshot(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, coordinator.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		log.Error().Err(err).Msg("failed to get room state")
		http.Error(w, "Failed to get room state", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode room state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/room/state", h.HandleGetRoomState)
}
