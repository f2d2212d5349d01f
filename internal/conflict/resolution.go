package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/pkg/logger"
)

// State tracks a conflict through the resolution protocol.
type State string

const (
	// StateDetected means the detector produced the conflict but nobody
	// has seen it yet.
	StateDetected State = "detected"
	// StatePresented means the conflict was shown to the user and awaits
	// their choice.
	StatePresented State = "presented"
	// StateResolved is terminal: one booking kept, the other flagged for
	// manual cancellation on its source platform.
	StateResolved State = "resolved"
)

// Resolution protocol errors.
var (
	ErrInvalidTransition = errors.New("conflict: invalid state transition")
	ErrUnknownBooking    = errors.New("conflict: booking is not part of this conflict")
)

// Resolution carries a conflict through Detected → Presented → Resolved.
// The engine never picks a winner on its own; the transition to Resolved
// happens only on an explicit user choice.
type Resolution struct {
	Conflict           models.Conflict `json:"conflict"`
	State              State           `json:"state"`
	KeptBookingID      string          `json:"kept_booking_id,omitempty"`
	CancelledBookingID string          `json:"cancelled_booking_id,omitempty"`
	ResolvedAt         *time.Time      `json:"resolved_at,omitempty"`
}

// NewResolution starts tracking a freshly detected conflict.
func NewResolution(c models.Conflict) *Resolution {
	return &Resolution{Conflict: c, State: StateDetected}
}

// Present marks the conflict as surfaced to the user.
func (r *Resolution) Present() error {
	if r.State != StateDetected {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, StatePresented)
	}
	r.State = StatePresented
	return nil
}

// BookingStatusWriter is the single store mutation resolution performs.
type BookingStatusWriter interface {
	UpdateStatus(ctx context.Context, bookingID, status string) error
}

// Resolver applies user choices to presented conflicts.
type Resolver struct {
	store BookingStatusWriter
	log   logger.Logger
}

// NewResolver creates a resolver writing through the given store.
func NewResolver(store BookingStatusWriter, log logger.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Resolve records the user's choice of which booking to keep. The kept
// booking is left untouched; the other is flagged cancel_required. The flag
// is surfaced to the user rather than enforced, since a reservation on a
// third-party platform can only be cancelled there.
func (rv *Resolver) Resolve(ctx context.Context, r *Resolution, keepBookingID string) error {
	if r.State != StatePresented {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, StateResolved)
	}

	var cancelledID string
	switch keepBookingID {
	case r.Conflict.BookingA.ID:
		cancelledID = r.Conflict.BookingB.ID
	case r.Conflict.BookingB.ID:
		cancelledID = r.Conflict.BookingA.ID
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBooking, keepBookingID)
	}

	if err := rv.store.UpdateStatus(ctx, cancelledID, models.BookingStatusCancelRequired); err != nil {
		return fmt.Errorf("flagging booking %s for cancellation: %w", cancelledID, err)
	}

	now := time.Now().UTC()
	r.State = StateResolved
	r.KeptBookingID = keepBookingID
	r.CancelledBookingID = cancelledID
	r.ResolvedAt = &now

	rv.log.Info("conflict resolved",
		"property_id", r.Conflict.PropertyID,
		"kept_booking_id", keepBookingID,
		"cancelled_booking_id", cancelledID,
	)

	return nil
}
