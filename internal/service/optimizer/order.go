package optimizer

import (
	"context"
	"sort"

	"github.com/example/provider-scheduler/internal/domain"
)

const kmTolerance = 1e-9

// OrderBookings reorders a day's bookings to shorten travel. Fixed bookings
// (client-preferred or pinned) keep their chronological order; each run of
// flexible bookings between two anchors is ordered by a nearest-neighbor
// walk from the previous anchor's address.
//
// Nearest-neighbor is a greedy approximation of the optimal ordering, not a
// guaranteed optimum. Equidistant candidates resolve deterministically to the
// earlier original start time, then the lower id.
func (o *Optimizer) OrderBookings(ctx context.Context, bookings []domain.Booking) ([]domain.Booking, error) {
	if len(bookings) < 2 {
		return append([]domain.Booking(nil), bookings...), nil
	}

	sorted := make([]domain.Booking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ScheduledStart.Equal(sorted[j].ScheduledStart) {
			return sorted[i].ScheduledStart.Before(sorted[j].ScheduledStart)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	out := make([]domain.Booking, 0, len(sorted))
	var run []domain.Booking
	anchorAddress := ""

	flush := func() error {
		ordered, err := o.orderRun(ctx, anchorAddress, run)
		if err != nil {
			return err
		}
		out = append(out, ordered...)
		run = nil
		return nil
	}

	for _, b := range sorted {
		if b.Fixed() {
			if err := flush(); err != nil {
				return nil, err
			}
			out = append(out, b)
			anchorAddress = b.Address
			continue
		}
		run = append(run, b)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// orderRun greedily walks the run from the anchor address, repeatedly taking
// the nearest remaining booking. Without an anchor the chronologically first
// booking seeds the walk.
func (o *Optimizer) orderRun(ctx context.Context, anchorAddress string, run []domain.Booking) ([]domain.Booking, error) {
	if len(run) < 2 {
		return run, nil
	}

	remaining := append([]domain.Booking(nil), run...)
	out := make([]domain.Booking, 0, len(run))

	current := anchorAddress
	if current == "" {
		out = append(out, remaining[0])
		current = remaining[0].Address
		remaining = remaining[1:]
	}

	for len(remaining) > 0 {
		best := 0
		bestLeg, err := o.estimator.Between(ctx, current, remaining[0].Address)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(remaining); i++ {
			leg, err := o.estimator.Between(ctx, current, remaining[i].Address)
			if err != nil {
				return nil, err
			}
			if leg.Km < bestLeg.Km-kmTolerance {
				best, bestLeg = i, leg
				continue
			}
			if leg.Km <= bestLeg.Km+kmTolerance && earlierBooking(remaining[i], remaining[best]) {
				best, bestLeg = i, leg
			}
		}
		out = append(out, remaining[best])
		current = remaining[best].Address
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out, nil
}

func earlierBooking(a, b domain.Booking) bool {
	if !a.ScheduledStart.Equal(b.ScheduledStart) {
		return a.ScheduledStart.Before(b.ScheduledStart)
	}
	return a.ID.String() < b.ID.String()
}
