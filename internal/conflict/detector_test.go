package conflict

import (
	"testing"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func booking(id, propertyID string, start, end time.Time, createdOffset time.Duration) models.Booking {
	return models.Booking{
		ID:         id,
		PropertyID: propertyID,
		Platform:   models.PlatformAirbnb,
		StartDate:  start,
		EndDate:    end,
		Status:     models.BookingStatusActive,
		CreatedAt:  time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC).Add(createdOffset),
	}
}

func TestFindConflicts_Empty(t *testing.T) {
	if got := FindConflicts(nil); len(got) != 0 {
		t.Fatalf("FindConflicts(nil) = %d conflicts, want 0", len(got))
	}

	single := []models.Booking{booking("a", "p1", day(10), day(15), 0)}
	if got := FindConflicts(single); len(got) != 0 {
		t.Fatalf("FindConflicts(single) = %d conflicts, want 0", len(got))
	}
}

func TestFindConflicts_AdjacentIsNotAConflict(t *testing.T) {
	// Same-day checkout/check-in turnover: [Jan 10, Jan 15) then [Jan 15, Jan 20).
	bookings := []models.Booking{
		booking("a", "p1", day(10), day(15), 0),
		booking("b", "p1", day(15), day(20), time.Hour),
	}

	if got := FindConflicts(bookings); len(got) != 0 {
		t.Fatalf("adjacent bookings flagged as conflict: %+v", got)
	}
}

func TestFindConflicts_Overlap(t *testing.T) {
	bookings := []models.Booking{
		booking("a", "p1", day(10), day(15), 0),
		booking("c", "p1", day(12), day(18), time.Hour),
	}

	conflicts := FindConflicts(bookings)
	if len(conflicts) != 1 {
		t.Fatalf("FindConflicts = %d conflicts, want 1", len(conflicts))
	}

	c := conflicts[0]
	if !c.OverlapStart.Equal(day(12)) {
		t.Errorf("OverlapStart = %v, want Jan 12", c.OverlapStart)
	}
	if !c.OverlapEnd.Equal(day(15)) {
		t.Errorf("OverlapEnd = %v, want Jan 15", c.OverlapEnd)
	}
	if n := c.OverlapNights(); n != 3 {
		t.Errorf("OverlapNights = %d, want 3", n)
	}
}

func TestFindConflicts_FirstClaimantIsBookingA(t *testing.T) {
	// "b" overlaps "a" but was created first, so it must come out as
	// BookingA regardless of input order.
	bookings := []models.Booking{
		booking("a", "p1", day(10), day(15), 2*time.Hour),
		booking("b", "p1", day(12), day(18), time.Hour),
	}

	conflicts := FindConflicts(bookings)
	if len(conflicts) != 1 {
		t.Fatalf("FindConflicts = %d conflicts, want 1", len(conflicts))
	}
	if conflicts[0].BookingA.ID != "b" {
		t.Errorf("BookingA.ID = %q, want %q (earlier createdAt)", conflicts[0].BookingA.ID, "b")
	}
	if conflicts[0].BookingB.ID != "a" {
		t.Errorf("BookingB.ID = %q, want %q", conflicts[0].BookingB.ID, "a")
	}
}

func TestFindConflicts_DifferentPropertiesNeverCompared(t *testing.T) {
	bookings := []models.Booking{
		booking("a", "p1", day(10), day(15), 0),
		booking("b", "p2", day(10), day(15), time.Hour),
	}

	if got := FindConflicts(bookings); len(got) != 0 {
		t.Fatalf("cross-property conflict reported: %+v", got)
	}
}

func TestFindConflicts_ContainedRange(t *testing.T) {
	bookings := []models.Booking{
		booking("a", "p1", day(1), day(30), 0),
		booking("b", "p1", day(10), day(12), time.Hour),
	}

	conflicts := FindConflicts(bookings)
	if len(conflicts) != 1 {
		t.Fatalf("FindConflicts = %d conflicts, want 1", len(conflicts))
	}
	if !conflicts[0].OverlapStart.Equal(day(10)) || !conflicts[0].OverlapEnd.Equal(day(12)) {
		t.Errorf("overlap = [%v, %v), want [Jan 10, Jan 12)", conflicts[0].OverlapStart, conflicts[0].OverlapEnd)
	}
}

func TestFindConflicts_ResolvedPairNotReReported(t *testing.T) {
	a := booking("a", "p1", day(10), day(15), 0)
	b := booking("b", "p1", day(12), day(18), time.Hour)

	if got := FindConflicts([]models.Booking{a, b}); len(got) != 1 {
		t.Fatalf("before resolution: %d conflicts, want 1", len(got))
	}

	// Resolution kept "a": "b" now requires external cancellation.
	b.Status = models.BookingStatusCancelRequired
	if got := FindConflicts([]models.Booking{a, b}); len(got) != 0 {
		t.Fatalf("after resolution: %d conflicts, want 0", len(got))
	}

	// A fresh booking overlapping the kept one is still reported.
	d := booking("d", "p1", day(14), day(16), 2*time.Hour)
	conflicts := FindConflicts([]models.Booking{a, b, d})
	if len(conflicts) != 1 {
		t.Fatalf("after new booking: %d conflicts, want 1", len(conflicts))
	}
	if conflicts[0].BookingA.ID != "a" || conflicts[0].BookingB.ID != "d" {
		t.Errorf("conflict pair = (%s, %s), want (a, d)", conflicts[0].BookingA.ID, conflicts[0].BookingB.ID)
	}
}

func TestFindConflicts_MultiplePairs(t *testing.T) {
	bookings := []models.Booking{
		booking("a", "p1", day(1), day(5), 0),
		booking("b", "p1", day(4), day(8), time.Hour),
		booking("c", "p1", day(7), day(11), 2*time.Hour),
	}

	conflicts := FindConflicts(bookings)
	if len(conflicts) != 2 {
		t.Fatalf("FindConflicts = %d conflicts, want 2 (a/b and b/c)", len(conflicts))
	}
}
