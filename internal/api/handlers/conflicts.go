package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stayledger/backend/internal/api/middleware"
	"github.com/stayledger/backend/internal/conflict"
	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/internal/sync"
)

type ResolveConflictRequest struct {
	BookingAID    string `json:"booking_a_id"`
	BookingBID    string `json:"booking_b_id"`
	KeepBookingID string `json:"keep_booking_id"`
}

// ListConflicts returns the currently detected conflicts for a property.
// Pairs whose losing booking was already flagged for external cancellation
// do not reappear here.
func ListConflicts(service *sync.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := mux.Vars(r)["id"]

		conflicts, err := service.Conflicts(r.Context(), propertyID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to detect conflicts")
			return
		}
		if conflicts == nil {
			conflicts = []models.Conflict{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conflicts)
	}
}

// ResolveConflict records the user's choice for a detected conflict. The
// booking the user keeps stays active; the other is flagged as requiring
// cancellation on its platform.
func ResolveConflict(service *sync.Service, resolver *conflict.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := mux.Vars(r)["id"]

		var req ResolveConflictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.BookingAID == "" || req.BookingBID == "" || req.KeepBookingID == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "booking_a_id, booking_b_id and keep_booking_id are required")
			return
		}

		ctx := r.Context()
		conflicts, err := service.Conflicts(ctx, propertyID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to detect conflicts")
			return
		}

		var target *models.Conflict
		for i := range conflicts {
			a, b := conflicts[i].BookingA.ID, conflicts[i].BookingB.ID
			if (a == req.BookingAID && b == req.BookingBID) || (a == req.BookingBID && b == req.BookingAID) {
				target = &conflicts[i]
				break
			}
		}
		if target == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "No such conflict between these bookings")
			return
		}

		resolution := conflict.NewResolution(*target)
		if err := resolution.Present(); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to present conflict")
			return
		}

		if err := resolver.Resolve(ctx, resolution, req.KeepBookingID); err != nil {
			if errors.Is(err, conflict.ErrUnknownBooking) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "keep_booking_id must be one of the conflicting bookings")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to resolve conflict")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resolution)
	}
}
