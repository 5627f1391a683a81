package distance

import (
	"context"
	"time"
)

// Leg is the cost of traveling between two addresses.
type Leg struct {
	Km         float64       `json:"km"`
	TravelTime time.Duration `json:"travel_time"`
}

// Estimator resolves the travel cost between two addresses. Implementations
// wrap whatever geocoding or routing capability the deployment provides.
type Estimator interface {
	Between(ctx context.Context, from, to string) (Leg, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(ctx context.Context, from, to string) (Leg, error)

func (f EstimatorFunc) Between(ctx context.Context, from, to string) (Leg, error) {
	return f(ctx, from, to)
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
