package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a derived, never-persisted bookable sub-interval of an
// availability window.
type TimeSlot struct {
	Start          time.Time
	End            time.Time
	AvailabilityID uuid.UUID
}

func (s TimeSlot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// SlotsInWindow cuts the window into consecutive fixed-length slots anchored
// at the window start. Partial trailing slots are dropped.
func SlotsInWindow(window Interval, availabilityID uuid.UUID, slotMinutes int) []TimeSlot {
	if slotMinutes <= 0 || !window.IsValid() {
		return nil
	}
	step := time.Duration(slotMinutes) * time.Minute
	var out []TimeSlot
	for start := window.Start; !start.Add(step).After(window.End); start = start.Add(step) {
		out = append(out, TimeSlot{
			Start:          start,
			End:            start.Add(step),
			AvailabilityID: availabilityID,
		})
	}
	return out
}

// IntersectSlots pairwise-intersects two slot sets, keeping intersections of
// at least minMinutes. Result slots carry the first set's availability id.
func IntersectSlots(a, b []TimeSlot, minMinutes int) []TimeSlot {
	minDur := time.Duration(minMinutes) * time.Minute
	var out []TimeSlot
	for _, sa := range a {
		for _, sb := range b {
			iv, ok := sa.Interval().Intersect(sb.Interval())
			if !ok || iv.Duration() < minDur {
				continue
			}
			out = append(out, TimeSlot{Start: iv.Start, End: iv.End, AvailabilityID: sa.AvailabilityID})
		}
	}
	return out
}
