// Package interval provides the half-open interval intersection test shared
// by permission grant windows and reservation time slots.
package interval

import "time"

// Overlaps reports whether [start1, end1) intersects [start2, end2).
// A nil bound is open on that side: nil start is unbounded past, nil end
// is unbounded future, so a fully open window overlaps everything.
func Overlaps(start1, end1, start2, end2 *time.Time) bool {
	// start1 < end2 (or either side unbounded)
	if start1 != nil && end2 != nil && !start1.Before(*end2) {
		return false
	}
	// end1 > start2 (or either side unbounded)
	if end1 != nil && start2 != nil && !end1.After(*start2) {
		return false
	}
	return true
}

// Contains reports whether at falls inside [start, end], with nil bounds
// open on their side. Both bounds are inclusive: access is honored through
// the exact end instant.
func Contains(start, end *time.Time, at time.Time) bool {
	if start != nil && start.After(at) {
		return false
	}
	if end != nil && end.Before(at) {
		return false
	}
	return true
}
