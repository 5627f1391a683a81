package optimizer

import (
	"context"
	"math"
	"time"

	"github.com/example/provider-scheduler/internal/domain"
)

type BalanceAction string

const (
	BalanceReduce   BalanceAction = "reduce"
	BalanceIncrease BalanceAction = "increase"
)

type DayLoad struct {
	Day       time.Time
	Booked    time.Duration
	Deviation time.Duration
	Action    BalanceAction
}

type BalanceReport struct {
	Days       []DayLoad
	MeanPerDay time.Duration
	// StdDevHours is the population standard deviation of daily booked
	// hours across the week.
	StdDevHours float64
	// BalanceScore is max(0, 100 - 10*StdDevHours).
	BalanceScore float64
	Rebalance    []DayLoad
}

// BalanceWeek reports how evenly the provider's booked time spreads over the
// 7 days starting at weekStart. Days deviating from the weekly mean by more
// than the rebalance threshold are flagged with the corrective direction.
func (o *Optimizer) BalanceWeek(ctx context.Context, providerID string, weekStart time.Time) (BalanceReport, error) {
	weekStart = domain.DayOf(weekStart)
	weekEnd := weekStart.AddDate(0, 0, 7)

	bookings, err := o.bookings.ListForPeriod(ctx, providerID, weekStart, weekEnd)
	if err != nil {
		return BalanceReport{}, err
	}

	perDay := make([]time.Duration, 7)
	for _, b := range bookings {
		idx := int(domain.DayOf(b.ScheduledStart).Sub(weekStart) / (24 * time.Hour))
		if idx < 0 || idx > 6 {
			continue
		}
		perDay[idx] += time.Duration(b.DurationMinutes) * time.Minute
	}

	var total time.Duration
	for _, d := range perDay {
		total += d
	}
	mean := total / 7

	var sumSq float64
	for _, d := range perDay {
		diff := (d - mean).Hours()
		sumSq += diff * diff
	}
	stddev := math.Sqrt(sumSq / 7)

	report := BalanceReport{
		Days:         make([]DayLoad, 7),
		MeanPerDay:   mean,
		StdDevHours:  stddev,
		BalanceScore: math.Max(0, 100-10*stddev),
		Rebalance:    []DayLoad{},
	}
	for i, booked := range perDay {
		load := DayLoad{
			Day:       weekStart.AddDate(0, 0, i),
			Booked:    booked,
			Deviation: booked - mean,
		}
		if load.Deviation > o.cfg.RebalanceThreshold {
			load.Action = BalanceReduce
		} else if -load.Deviation > o.cfg.RebalanceThreshold {
			load.Action = BalanceIncrease
		}
		report.Days[i] = load
		if load.Action != "" {
			report.Rebalance = append(report.Rebalance, load)
		}
	}
	return report, nil
}
