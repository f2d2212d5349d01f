package models

import "time"

// Conflict is a double-booking: two bookings for the same property whose
// half-open date ranges intersect. BookingA is always the earlier-created
// booking ("arrived first"). Conflicts are computed on demand and never
// persisted; they are recomputed whenever the property's booking set
// changes.
type Conflict struct {
	PropertyID   string    `json:"property_id"`
	BookingA     Booking   `json:"booking_a"`
	BookingB     Booking   `json:"booking_b"`
	OverlapStart time.Time `json:"overlap_start"`
	OverlapEnd   time.Time `json:"overlap_end"`
}

// OverlapNights returns the number of nights both bookings claim.
func (c *Conflict) OverlapNights() int {
	return int(c.OverlapEnd.Sub(c.OverlapStart) / (24 * time.Hour))
}
