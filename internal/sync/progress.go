package sync

import (
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

// Stage identifies one phase of a sync run. Stages are always delivered in
// declaration order; consumers may rely on that for UI sequencing.
type Stage string

const (
	StageConnect  Stage = "connect"
	StageFetch    Stage = "fetch"
	StageClassify Stage = "classify"
	StageImport   Stage = "import"
	StageFinalize Stage = "finalize"
)

// Fraction returns the completion fraction reported when the stage
// finishes. Fractions increase monotonically through a run.
func (s Stage) Fraction() float64 {
	switch s {
	case StageConnect:
		return 0.15
	case StageFetch:
		return 0.25
	case StageClassify:
		return 0.50
	case StageImport:
		return 0.70
	case StageFinalize:
		return 1.0
	}
	return 0
}

// Result summarizes a completed sync run.
type Result struct {
	PropertyID           string           `json:"property_id"`
	Platform             models.Platform  `json:"platform"`
	EventsFound          int              `json:"events_found"`
	ImportedReservations int              `json:"imported_reservations"`
	ImportedBlocks       int              `json:"imported_blocks"`
	ConflictsFound       int              `json:"conflicts_found"`
	UpcomingBookings     []models.Booking `json:"upcoming_bookings"`
	SyncedAt             time.Time        `json:"synced_at"`
}

// ProgressEvent is one update on a sync run's progress stream. The stream
// ends with a terminal event: either Result is set (success) or Err is set
// (failure). Work committed before a failure or cancellation stays
// committed.
type ProgressEvent struct {
	Stage    Stage   `json:"stage"`
	Message  string  `json:"message"`
	Fraction float64 `json:"fraction"`
	Result   *Result `json:"result,omitempty"`
	Err      error   `json:"-"`
}

// Terminal reports whether this is the stream's final event.
func (e ProgressEvent) Terminal() bool {
	return e.Result != nil || e.Err != nil
}
