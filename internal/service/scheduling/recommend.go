package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/service/optimizer"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const (
	overloadedOccupancy    = 85.0
	underusedOccupancy     = 30.0
	unbalancedScoreCeiling = 70.0
)

type Recommendation struct {
	Priority Priority
	Category string
	Message  string
}

// SuggestOptimizations folds the conflict, occupancy, and workload-balance
// signals for the period into a prioritized list of human-readable
// recommendations. Conflicts always rank first.
func (s *Service) SuggestOptimizations(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]Recommendation, error) {
	recs := []Recommendation{}

	conflicts, err := s.detector.DetectAll(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if n := len(conflicts); n > 0 {
		byKind := map[domain.ConflictKind]int{}
		for _, c := range conflicts {
			byKind[c.Kind]++
		}
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Category: "conflicts",
			Message: fmt.Sprintf("%d scheduling conflicts need resolution (%d double bookings, %d absence overlaps, %d outside availability)",
				n, byKind[domain.ConflictDoubleBooking], byKind[domain.ConflictAbsenceOverlap], byKind[domain.ConflictOutsideAvailability]),
		})
	}

	occupancy, err := s.manager.OccupancyRate(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	switch {
	case occupancy > overloadedOccupancy:
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Category: "occupancy",
			Message:  fmt.Sprintf("occupancy is at %.0f%%; consider opening additional availability windows", occupancy),
		})
	case occupancy > 0 && occupancy < underusedOccupancy:
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Category: "occupancy",
			Message:  fmt.Sprintf("occupancy is at %.0f%%; consider consolidating availability windows", occupancy),
		})
	}

	if s.optimizer != nil {
		report, err := s.optimizer.BalanceWeek(ctx, providerID, periodStart)
		if err != nil {
			return nil, err
		}
		if report.BalanceScore < unbalancedScoreCeiling {
			recs = append(recs, Recommendation{
				Priority: PriorityMedium,
				Category: "workload",
				Message:  fmt.Sprintf("weekly workload balance score is %.0f/100; redistribute bookings across the week", report.BalanceScore),
			})
		}
		for _, day := range report.Rebalance {
			verb := "move bookings away from"
			if day.Action == optimizer.BalanceIncrease {
				verb = "move bookings onto"
			}
			recs = append(recs, Recommendation{
				Priority: PriorityLow,
				Category: "workload",
				Message:  fmt.Sprintf("%s %s (%.1fh booked vs %.1fh weekly mean)", verb, day.Day.Format("Monday 2006-01-02"), day.Booked.Hours(), report.MeanPerDay.Hours()),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority)
	})
	return recs, nil
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}
