package optimizer

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/example/provider-scheduler/internal/distance"
	"github.com/example/provider-scheduler/internal/domain"
)

type Preferences struct {
	// PreferredStart is the client's preferred start instant, if any.
	PreferredStart *time.Time
}

type Factors struct {
	Travel     float64
	Efficiency float64
	Preference float64
	Gap        float64
}

type Suggestion struct {
	Slot    domain.TimeSlot
	Score   float64
	Travel  distance.Leg
	Factors Factors
}

// SuggestSlots ranks the free slots of the preferred date for a new booking
// at the given address. Each candidate is scored by a weighted sum of four
// factors: travel to its schedule neighbors, position in the day, client
// preference match, and the quality of the gaps it leaves. The top
// SuggestionLimit slots are returned in descending score order.
func (o *Optimizer) SuggestSlots(ctx context.Context, providerID string, preferredDate time.Time, durationMinutes int, address string, prefs Preferences) ([]Suggestion, error) {
	day := domain.DayOf(preferredDate)

	windows, err := o.windows.ListActiveForDay(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []Suggestion{}, nil
	}

	bookings, err := o.bookings.ListForPeriod(ctx, providerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].ScheduledStart.Before(bookings[j].ScheduledStart)
	})

	suggestions := []Suggestion{}
	for _, w := range windows {
		window := w.WindowOn(day)
		for _, slot := range domain.SlotsInWindow(window, w.ID, durationMinutes) {
			if slotOverlapsAny(slot, bookings) {
				continue
			}
			s, err := o.scoreSlot(ctx, slot, window, address, bookings, prefs)
			if err != nil {
				return nil, err
			}
			suggestions = append(suggestions, s)
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Slot.Start.Before(suggestions[j].Slot.Start)
	})
	if len(suggestions) > o.cfg.SuggestionLimit {
		suggestions = suggestions[:o.cfg.SuggestionLimit]
	}
	return suggestions, nil
}

func (o *Optimizer) scoreSlot(ctx context.Context, slot domain.TimeSlot, window domain.Interval, address string, bookings []domain.Booking, prefs Preferences) (Suggestion, error) {
	prev, next := neighbors(slot, bookings)

	var travel distance.Leg
	sides := 0
	if prev != nil {
		leg, err := o.estimator.Between(ctx, prev.Address, address)
		if err != nil {
			return Suggestion{}, err
		}
		travel.Km += leg.Km
		travel.TravelTime += leg.TravelTime
		sides++
	}
	if next != nil {
		leg, err := o.estimator.Between(ctx, address, next.Address)
		if err != nil {
			return Suggestion{}, err
		}
		travel.Km += leg.Km
		travel.TravelTime += leg.TravelTime
		sides++
	}

	f := Factors{
		Travel:     0.5,
		Efficiency: positionFactor(slot, window),
		Preference: preferenceFactor(slot, prefs),
		Gap:        o.gapFactor(slot, prev, next),
	}
	if sides > 0 {
		f.Travel = 1 / (1 + travel.TravelTime.Minutes()/30)
	}

	score := o.cfg.TravelWeight*f.Travel +
		o.cfg.EfficiencyWeight*f.Efficiency +
		o.cfg.PreferenceWeight*f.Preference +
		o.cfg.GapWeight*f.Gap

	return Suggestion{Slot: slot, Score: score, Travel: travel, Factors: f}, nil
}

// positionFactor favors earlier slots: a tightly packed morning leaves the
// rest of the window open.
func positionFactor(slot domain.TimeSlot, window domain.Interval) float64 {
	length := window.Duration()
	if length <= 0 {
		return 0
	}
	return 1 - float64(slot.Start.Sub(window.Start))/float64(length)
}

func preferenceFactor(slot domain.TimeSlot, prefs Preferences) float64 {
	if prefs.PreferredStart == nil {
		return 0.5
	}
	diff := slot.Start.Sub(prefs.PreferredStart.UTC())
	if diff < 0 {
		diff = -diff
	}
	return math.Max(0, 1-diff.Hours()/6)
}

// gapFactor penalizes slots that leave short unusable gaps next to existing
// bookings. Back-to-back is best; a gap of at least the ideal break is fine.
func (o *Optimizer) gapFactor(slot domain.TimeSlot, prev, next *domain.Booking) float64 {
	score, sides := 0.0, 0
	if prev != nil {
		score += o.sideGapQuality(slot.Start.Sub(prev.End()))
		sides++
	}
	if next != nil {
		score += o.sideGapQuality(next.ScheduledStart.Sub(slot.End))
		sides++
	}
	if sides == 0 {
		return 1
	}
	return score / float64(sides)
}

func (o *Optimizer) sideGapQuality(gap time.Duration) float64 {
	switch {
	case gap <= 0:
		return 1
	case gap >= o.cfg.IdealGap:
		return 0.8
	default:
		return 0.3
	}
}

func neighbors(slot domain.TimeSlot, sorted []domain.Booking) (prev, next *domain.Booking) {
	for i := range sorted {
		b := sorted[i]
		if !b.End().After(slot.Start) {
			prev = &sorted[i]
			continue
		}
		if !b.ScheduledStart.Before(slot.End) {
			next = &sorted[i]
			break
		}
	}
	return prev, next
}

func slotOverlapsAny(slot domain.TimeSlot, bookings []domain.Booking) bool {
	for _, b := range bookings {
		if slot.Interval().Overlaps(b.Interval()) {
			return true
		}
	}
	return false
}
