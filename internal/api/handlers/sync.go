package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stayledger/backend/internal/api/middleware"
	"github.com/stayledger/backend/internal/storage"
	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/internal/sync"
)

type TriggerSyncResponse struct {
	Status     string          `json:"status"`
	PropertyID string          `json:"property_id"`
	Platform   models.Platform `json:"platform"`
}

// TriggerSync starts a sync run for a (property, platform) connection in the
// background. Progress is delivered over the WebSocket event stream.
func TriggerSync(connections *storage.ConnectionRepository, scheduler *sync.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		propertyID := vars["id"]

		platform := models.Platform(vars["platform"])
		if !platform.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown platform")
			return
		}

		conn, err := connections.Get(r.Context(), propertyID, platform)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query connection")
			return
		}
		if conn == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "No connection registered for this property and platform")
			return
		}

		scheduler.TriggerSync(*conn)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(TriggerSyncResponse{
			Status:     "started",
			PropertyID: propertyID,
			Platform:   platform,
		})
	}
}
