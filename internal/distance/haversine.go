package distance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// HaversineEstimator computes great-circle distance between "lat,lon"
// addresses and derives travel time from a flat average speed. It is a
// development and test fallback, not a routing engine.
type HaversineEstimator struct {
	AvgSpeedKmH float64
}

func NewHaversineEstimator(avgSpeedKmH float64) *HaversineEstimator {
	if avgSpeedKmH <= 0 {
		avgSpeedKmH = 30
	}
	return &HaversineEstimator{AvgSpeedKmH: avgSpeedKmH}
}

func (e *HaversineEstimator) Between(ctx context.Context, from, to string) (Leg, error) {
	if from == to {
		return Leg{}, nil
	}
	lat1, lon1, err := parseCoordinates(from)
	if err != nil {
		return Leg{}, err
	}
	lat2, lon2, err := parseCoordinates(to)
	if err != nil {
		return Leg{}, err
	}

	km := haversineKm(lat1, lon1, lat2, lon2)
	return Leg{
		Km:         km,
		TravelTime: minutesToDuration(km / e.AvgSpeedKmH * 60),
	}, nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func parseCoordinates(address string) (lat, lon float64, err error) {
	parts := strings.SplitN(address, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("address %q is not a lat,lon pair", address)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("address %q has invalid latitude", address)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("address %q has invalid longitude", address)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("address %q is out of range", address)
	}
	return lat, lon, nil
}
