package domain

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) IsValid() bool {
	return iv.End.After(iv.Start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return IntervalsOverlap(iv.Start, iv.End, other.Start, other.End)
}

func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) ContainsInstant(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Intersect returns [max(starts), min(ends)) and whether it is non-empty.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	start := iv.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// IntervalsOverlap reports whether [aStart, aEnd) and [bStart, bEnd) share
// any instant. Touching endpoints do not overlap.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DayOf truncates t to the start of its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
