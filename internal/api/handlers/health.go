// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stayledger/backend/internal/storage"
	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/internal/ws"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	PropertiesCount      int `json:"properties_count"`
	ConnectionsCount     int `json:"connections_count"`
	BookingsCount        int `json:"bookings_count"`
	BlockedDatesCount    int `json:"blocked_dates_count"`
	PendingCancellations int `json:"pending_cancellations"`
	ConnectedClients     int `json:"connected_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var response StatusResponse
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties").Scan(&response.PropertiesCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_connections").Scan(&response.ConnectionsCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&response.BookingsCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blocked_dates").Scan(&response.BlockedDatesCount)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE status = ?",
			models.BookingStatusCancelRequired).Scan(&response.PendingCancellations)
		response.ConnectedClients = hub.ClientCount()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
