package itinerary

import (
	"fmt"

	"github.com/aerocharter/service-flightpath/internal/domain/geo"
)

// LegRoute is a value object describing how one leg is drawn and labelled on the map.
type LegRoute struct {
	Sequence             int            `json:"sequence"`
	Origin               Endpoint       `json:"origin"`
	Destination          Endpoint       `json:"destination"`
	DistanceKm           float64        `json:"distance_km"`
	DistanceNm           float64        `json:"distance_nm"`
	EstimatedDurationMin int            `json:"estimated_duration_min"`
	Path                 geo.CurvedPath `json:"path"`
}

// PlanLegRoute computes the distance, block time and curved path for a leg.
func PlanLegRoute(leg Leg, category AircraftCategory, estimator FlightTimeEstimator, opts geo.PathOptions) (LegRoute, error) {
	distanceKm := leg.DistanceKm()

	duration, err := estimator.Estimate(FlightTimeParams{
		DistanceKm: distanceKm,
		Category:   category,
	})
	if err != nil {
		return LegRoute{}, fmt.Errorf("leg %d: %w", leg.Sequence, err)
	}

	return LegRoute{
		Sequence:             leg.Sequence,
		Origin:               leg.Origin,
		Destination:          leg.Destination,
		DistanceKm:           distanceKm,
		DistanceNm:           geo.KmToNm(distanceKm),
		EstimatedDurationMin: duration,
		Path:                 geo.BuildCurvedPath(leg.Origin.Point, leg.Destination.Point, opts),
	}, nil
}
