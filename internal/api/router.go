// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stayledger/backend/internal/api/handlers"
	"github.com/stayledger/backend/internal/api/middleware"
	"github.com/stayledger/backend/internal/conflict"
	"github.com/stayledger/backend/internal/storage"
	"github.com/stayledger/backend/internal/sync"
	"github.com/stayledger/backend/internal/ws"
	"github.com/stayledger/backend/pkg/logger"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB          *storage.DB
	Properties  *storage.PropertyRepository
	Bookings    *storage.BookingRepository
	Blocks      *storage.BlockRepository
	Connections *storage.ConnectionRepository
	SyncService *sync.Service
	Scheduler   *sync.Scheduler
	Resolver    *conflict.Resolver
	Hub         *ws.Hub
	Log         logger.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.ErrorRecovery(d.Log))

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.Log)).Methods("GET")

	// Property endpoints
	api.HandleFunc("/properties", handlers.ListProperties(d.Properties)).Methods("GET")
	api.HandleFunc("/properties", handlers.CreateProperty(d.Properties)).Methods("POST")
	api.HandleFunc("/properties/{id}", handlers.GetProperty(d.Properties)).Methods("GET")
	api.HandleFunc("/properties/{id}/bookings", handlers.ListBookings(d.Bookings)).Methods("GET")
	api.HandleFunc("/properties/{id}/blocked-dates", handlers.ListBlockedDates(d.Blocks)).Methods("GET")

	// Connection endpoints
	api.HandleFunc("/connections", handlers.ListConnections(d.Connections)).Methods("GET")
	api.HandleFunc("/properties/{id}/connections", handlers.ListPropertyConnections(d.Connections)).Methods("GET")
	api.HandleFunc("/properties/{id}/connections/{platform}", handlers.GetConnection(d.Connections)).Methods("GET")
	api.HandleFunc("/properties/{id}/connections/{platform}", handlers.UpsertConnection(d.Properties, d.Connections, d.Scheduler)).Methods("PUT")

	// Sync endpoints
	api.HandleFunc("/properties/{id}/sync/{platform}", handlers.TriggerSync(d.Connections, d.Scheduler)).Methods("POST")

	// Conflict endpoints
	api.HandleFunc("/properties/{id}/conflicts", handlers.ListConflicts(d.SyncService)).Methods("GET")
	api.HandleFunc("/properties/{id}/conflicts/resolve", handlers.ResolveConflict(d.SyncService, d.Resolver)).Methods("POST")

	return r
}
