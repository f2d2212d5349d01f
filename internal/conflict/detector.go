// Package conflict detects and resolves double-bookings.
package conflict

import (
	"sort"

	"github.com/stayledger/backend/internal/storage/models"
)

// FindConflicts computes every double-booking in the given booking set: two
// active bookings for the same property whose half-open date ranges
// intersect. Back-to-back stays where one checkout day equals the next
// check-in day are the normal turnover case and never flag.
//
// Bookings already resolved away (status cancel_required) are excluded, so
// a resolved pair is not re-reported unless a new overlapping booking
// appears against the kept one.
//
// The scan is a full pairwise pass; per-property booking counts are bounded
// (low hundreds), so quadratic is fine.
func FindConflicts(bookings []models.Booking) []models.Conflict {
	var conflicts []models.Conflict

	active := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelRequired {
			continue
		}
		active = append(active, b)
	}

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if a.PropertyID != b.PropertyID {
				continue
			}
			if !a.Overlaps(&b) {
				continue
			}

			// The earlier-created booking arrived first and is the
			// presumptive party to keep.
			first, second := a, b
			if b.CreatedAt.Before(a.CreatedAt) {
				first, second = b, a
			}

			overlapStart := first.StartDate
			if second.StartDate.After(overlapStart) {
				overlapStart = second.StartDate
			}
			overlapEnd := first.EndDate
			if second.EndDate.Before(overlapEnd) {
				overlapEnd = second.EndDate
			}

			conflicts = append(conflicts, models.Conflict{
				PropertyID:   a.PropertyID,
				BookingA:     first,
				BookingB:     second,
				OverlapStart: overlapStart,
				OverlapEnd:   overlapEnd,
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].OverlapStart.Before(conflicts[j].OverlapStart)
	})

	return conflicts
}
