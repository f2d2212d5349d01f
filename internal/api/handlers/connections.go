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

type UpsertConnectionRequest struct {
	FeedURL               string `json:"feed_url"`
	CadenceMinutes        int    `json:"cadence_minutes"`
	ConflictAlertsEnabled bool   `json:"conflict_alerts_enabled"`
}

// ListConnections returns every registered sync connection.
func ListConnections(connections *storage.ConnectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := connections.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list connections")
			return
		}
		if list == nil {
			list = []models.SyncConnection{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// ListPropertyConnections returns the sync connections for one property.
func ListPropertyConnections(connections *storage.ConnectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := mux.Vars(r)["id"]

		list, err := connections.ListByProperty(r.Context(), propertyID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to list connections")
			return
		}
		if list == nil {
			list = []models.SyncConnection{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// GetConnection returns the sync connection for a (property, platform) pair.
func GetConnection(connections *storage.ConnectionRepository) http.HandlerFunc {
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
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Connection not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conn)
	}
}

// UpsertConnection registers or updates a property's feed connection and
// (re)schedules its periodic sync.
func UpsertConnection(
	properties *storage.PropertyRepository,
	connections *storage.ConnectionRepository,
	scheduler *sync.Scheduler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		propertyID := vars["id"]

		platform := models.Platform(vars["platform"])
		if !platform.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown platform")
			return
		}

		var req UpsertConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := sync.ValidateFeedURL(req.FeedURL); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Feed URL must be a valid HTTP(S) URL")
			return
		}

		ctx := r.Context()
		property, err := properties.GetByID(ctx, propertyID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query property")
			return
		}
		if property == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
			return
		}

		conn := &models.SyncConnection{
			PropertyID:            propertyID,
			Platform:              platform,
			FeedURL:               req.FeedURL,
			CadenceMinutes:        req.CadenceMinutes,
			ConflictAlertsEnabled: req.ConflictAlertsEnabled,
		}
		if err := connections.Upsert(ctx, conn); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to save connection")
			return
		}

		if scheduler != nil {
			scheduler.ScheduleConnection(*conn)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conn)
	}
}
