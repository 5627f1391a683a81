package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/example/provider-scheduler/internal/domain"
)

type ScheduleMetrics struct {
	WorkTime   time.Duration
	TravelTime time.Duration
	TravelKm   float64
	IdleTime   time.Duration
	// Efficiency is work over work+travel+idle, in [0, 1]. Zero when the
	// schedule is empty.
	Efficiency float64
}

// Analyze computes the aggregate metrics of a booking list: total work time,
// travel between consecutive stops, and positive idle gaps. Idempotent; the
// same input always yields the same metrics.
func (o *Optimizer) Analyze(ctx context.Context, bookings []domain.Booking) (ScheduleMetrics, error) {
	if len(bookings) == 0 {
		return ScheduleMetrics{}, nil
	}

	sorted := make([]domain.Booking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ScheduledStart.Before(sorted[j].ScheduledStart)
	})

	var m ScheduleMetrics
	for _, b := range sorted {
		m.WorkTime += time.Duration(b.DurationMinutes) * time.Minute
	}

	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		leg, err := o.estimator.Between(ctx, prev.Address, next.Address)
		if err != nil {
			return ScheduleMetrics{}, err
		}
		m.TravelTime += leg.TravelTime
		m.TravelKm += leg.Km

		gap := next.ScheduledStart.Sub(prev.End().Add(leg.TravelTime))
		if gap > 0 {
			m.IdleTime += gap
		}
	}

	total := m.WorkTime + m.TravelTime + m.IdleTime
	if total > 0 {
		m.Efficiency = float64(m.WorkTime) / float64(total)
	}
	return m, nil
}
