package models

import "time"

// Classification is the parser's best-effort guess at what a calendar
// event represents. Feeds collapse real reservations and owner blocks into
// the same VEVENT shape, so this is a heuristic, not ground truth.
type Classification string

const (
	// ClassificationReservation is a paying-guest stay.
	ClassificationReservation Classification = "reservation"
	// ClassificationBlock is unavailability with no guest attached.
	ClassificationBlock Classification = "block"
)

// CalendarEvent is one parsed VEVENT from a feed. Events are ephemeral:
// they are produced fresh on every parse and discarded once folded into a
// Booking or BlockedDate (or dropped as a duplicate).
type CalendarEvent struct {
	// ExternalID is the record's UID, stable across re-parses of the same
	// feed. Events without a UID get a generated token and will re-import
	// on every sync; there is nothing to deduplicate them by.
	ExternalID     string         `json:"external_id"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	RawSummary     string         `json:"raw_summary"`
	RawDescription string         `json:"raw_description"`
	Classification Classification `json:"classification"`
	GuestLabel     string         `json:"guest_label,omitempty"`
}

// Nights returns the number of nights spanned by the half-open range.
func (e *CalendarEvent) Nights() int {
	return int(e.EndDate.Sub(e.StartDate) / (24 * time.Hour))
}
