package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/example/provider-scheduler/internal/distance"
	"github.com/example/provider-scheduler/internal/domain"
)

type RouteResult struct {
	Order           []domain.Booking
	CurrentKm       float64
	CurrentTravel   time.Duration
	OptimizedKm     float64
	OptimizedTravel time.Duration
	KmSaved         float64
	TimeSaved       time.Duration
}

// OptimizeRoute orders the bookings' stops by the nearest-neighbor walk over
// a full pairwise distance matrix, optionally anchored at explicit start and
// end locations. Matrix construction and the walk are both O(n²) in the
// number of stops, which bounds practical input sizes.
func (o *Optimizer) OptimizeRoute(ctx context.Context, bookings []domain.Booking, startLocation, endLocation string) (RouteResult, error) {
	if len(bookings) == 0 {
		return RouteResult{Order: []domain.Booking{}}, nil
	}

	chronological := make([]domain.Booking, len(bookings))
	copy(chronological, bookings)
	sort.Slice(chronological, func(i, j int) bool {
		return chronological[i].ScheduledStart.Before(chronological[j].ScheduledStart)
	})

	currentKm, currentTravel, err := o.routeCost(ctx, chronological, startLocation, endLocation)
	if err != nil {
		return RouteResult{}, err
	}

	legs, err := o.legMatrix(ctx, chronological, startLocation)
	if err != nil {
		return RouteResult{}, err
	}
	order := nearestNeighborOrder(chronological, legs, startLocation != "")

	optimizedKm, optimizedTravel, err := o.routeCost(ctx, order, startLocation, endLocation)
	if err != nil {
		return RouteResult{}, err
	}

	return RouteResult{
		Order:           order,
		CurrentKm:       currentKm,
		CurrentTravel:   currentTravel,
		OptimizedKm:     optimizedKm,
		OptimizedTravel: optimizedTravel,
		KmSaved:         currentKm - optimizedKm,
		TimeSaved:       currentTravel - optimizedTravel,
	}, nil
}

// legMatrix resolves every pairwise leg up front. Row 0 holds the legs from
// the start anchor (unused when there is none); row i+1 the legs from stop i.
func (o *Optimizer) legMatrix(ctx context.Context, stops []domain.Booking, startLocation string) ([][]distance.Leg, error) {
	n := len(stops)
	legs := make([][]distance.Leg, n+1)
	for i := range legs {
		legs[i] = make([]distance.Leg, n)
	}

	if startLocation != "" {
		for j, b := range stops {
			leg, err := o.estimator.Between(ctx, startLocation, b.Address)
			if err != nil {
				return nil, err
			}
			legs[0][j] = leg
		}
	}
	for i, from := range stops {
		for j, to := range stops {
			if i == j {
				continue
			}
			leg, err := o.estimator.Between(ctx, from.Address, to.Address)
			if err != nil {
				return nil, err
			}
			legs[i+1][j] = leg
		}
	}
	return legs, nil
}

func nearestNeighborOrder(stops []domain.Booking, legs [][]distance.Leg, hasStart bool) []domain.Booking {
	n := len(stops)
	visited := make([]bool, n)
	order := make([]domain.Booking, 0, n)

	row := 0
	if !hasStart {
		// No anchor: the chronologically first stop seeds the walk.
		visited[0] = true
		order = append(order, stops[0])
		row = 1
	}

	for len(order) < n {
		best := -1
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if best == -1 {
				best = j
				continue
			}
			if legs[row][j].Km < legs[row][best].Km-kmTolerance {
				best = j
				continue
			}
			if legs[row][j].Km <= legs[row][best].Km+kmTolerance && earlierBooking(stops[j], stops[best]) {
				best = j
			}
		}
		visited[best] = true
		order = append(order, stops[best])
		row = best + 1
	}
	return order
}

func (o *Optimizer) routeCost(ctx context.Context, order []domain.Booking, startLocation, endLocation string) (float64, time.Duration, error) {
	var km float64
	var travel time.Duration

	addLeg := func(from, to string) error {
		leg, err := o.estimator.Between(ctx, from, to)
		if err != nil {
			return err
		}
		km += leg.Km
		travel += leg.TravelTime
		return nil
	}

	if startLocation != "" {
		if err := addLeg(startLocation, order[0].Address); err != nil {
			return 0, 0, err
		}
	}
	for i := 1; i < len(order); i++ {
		if err := addLeg(order[i-1].Address, order[i].Address); err != nil {
			return 0, 0, err
		}
	}
	if endLocation != "" {
		if err := addLeg(order[len(order)-1].Address, endLocation); err != nil {
			return 0, 0, err
		}
	}
	return km, travel, nil
}
