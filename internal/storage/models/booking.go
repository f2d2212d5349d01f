package models

import "time"

// Booking represents a durable reservation for a property.
// Imported bookings carry the source event UID in ExternalID; manually
// entered bookings have a nil ExternalID and can never be deduplicated
// against a feed.
type Booking struct {
	ID         string    `json:"id"`
	ExternalID *string   `json:"external_id,omitempty"`
	PropertyID string    `json:"property_id"`
	Platform   Platform  `json:"platform"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	GuestLabel string    `json:"guest_label,omitempty"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Booking status constants.
const (
	// BookingStatusActive is a live reservation occupying its date range.
	BookingStatusActive = "active"
	// BookingStatusCancelRequired marks the losing side of a resolved
	// double-booking. The engine cannot cancel a reservation on a
	// third-party platform; the owner has to do it there.
	BookingStatusCancelRequired = "cancel_required"
)

// Nights returns the number of nights covered by the half-open range
// [StartDate, EndDate).
func (b *Booking) Nights() int {
	return int(b.EndDate.Sub(b.StartDate) / (24 * time.Hour))
}

// Overlaps reports whether two bookings' half-open date ranges intersect.
// Ranges that merely touch (checkout day equals check-in day) do not overlap.
func (b *Booking) Overlaps(other *Booking) bool {
	return b.StartDate.Before(other.EndDate) && other.StartDate.Before(b.EndDate)
}

// BlockedDate represents an administrative block imported from a feed:
// unavailability not tied to a paying guest (owner use, maintenance, or an
// ambiguous platform placeholder). Same dedup rule as bookings, no amount.
type BlockedDate struct {
	ID         string    `json:"id"`
	ExternalID *string   `json:"external_id,omitempty"`
	PropertyID string    `json:"property_id"`
	Platform   Platform  `json:"platform"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// Nights returns the number of blocked nights.
func (b *BlockedDate) Nights() int {
	return int(b.EndDate.Sub(b.StartDate) / (24 * time.Hour))
}

// Property carries the per-property attributes the engine needs at import
// time. Full property CRUD belongs to the surrounding application.
type Property struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NightlyRate float64   `json:"nightly_rate"`
	CreatedAt   time.Time `json:"created_at"`
}
