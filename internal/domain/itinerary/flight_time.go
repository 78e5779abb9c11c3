package itinerary

import (
	"fmt"
	"math"
)

// FlightTimeEstimator defines the interface for estimating block time of a leg.
type FlightTimeEstimator interface {
	// Estimate returns the estimated block time in whole minutes.
	Estimate(params FlightTimeParams) (int, error)
}

// FlightTimeParams holds the inputs for a block time estimate.
type FlightTimeParams struct {
	DistanceKm float64
	Category   AircraftCategory
}

// StandardFlightTimeEstimator implements the default block time rule.
type StandardFlightTimeEstimator struct{}

// NewStandardFlightTimeEstimator creates a new StandardFlightTimeEstimator.
func NewStandardFlightTimeEstimator() *StandardFlightTimeEstimator {
	return &StandardFlightTimeEstimator{}
}

// taxiClimbAllowanceMin covers taxi, climb and descent on top of cruise time.
const taxiClimbAllowanceMin = 20

// Estimate computes block time:
//   - Allowance: 20 minutes
//   - Cruise: distance / category cruise speed, rounded up to the minute
//
// A zero-distance leg still costs the allowance.
func (s *StandardFlightTimeEstimator) Estimate(params FlightTimeParams) (int, error) {
	if params.DistanceKm < 0 || math.IsNaN(params.DistanceKm) {
		return 0, fmt.Errorf("distance cannot be negative")
	}

	speed, err := cruiseSpeedKmh(params.Category)
	if err != nil {
		return 0, err
	}

	cruiseMin := int(math.Ceil(params.DistanceKm / speed * 60))
	return taxiClimbAllowanceMin + cruiseMin, nil
}

// cruiseSpeedKmh returns the typical cruise speed for a category.
func cruiseSpeedKmh(category AircraftCategory) (float64, error) {
	switch category {
	case CategoryLight:
		return 650, nil
	case CategoryMidsize:
		return 780, nil
	case CategorySuperMidsize:
		return 830, nil
	case CategoryHeavy:
		return 900, nil
	default:
		return 0, fmt.Errorf("unknown aircraft category for flight time: %s", category)
	}
}
