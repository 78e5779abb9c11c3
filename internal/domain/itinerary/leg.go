package itinerary

import (
	"fmt"
	"strings"
	"time"

	"github.com/aerocharter/service-flightpath/internal/domain/geo"
	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
)

// Endpoint is an airport a leg departs from or arrives at.
type Endpoint struct {
	Code  string       `json:"code"`
	Name  string       `json:"name"`
	Point geo.GeoPoint `json:"point"`
}

// NewEndpoint validates and normalizes an airport endpoint. Codes are IATA
// (3 letters) or ICAO (4 characters) and are stored upper-cased.
func NewEndpoint(code, name string, lat, lng float64) (Endpoint, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 3 || len(code) > 4 {
		return Endpoint{}, apperror.NewValidationError(fmt.Sprintf("airport code %q must be 3 or 4 characters", code))
	}
	point, err := geo.NewGeoPoint(lat, lng)
	if err != nil {
		return Endpoint{}, apperror.NewValidationError(fmt.Sprintf("airport %s: %v", code, err))
	}
	return Endpoint{Code: code, Name: strings.TrimSpace(name), Point: point}, nil
}

// Leg is one origin-to-destination segment of an itinerary.
type Leg struct {
	Sequence    int        `json:"sequence"`
	Origin      Endpoint   `json:"origin"`
	Destination Endpoint   `json:"destination"`
	DepartureAt *time.Time `json:"departure_at,omitempty"`
	Passengers  int        `json:"passengers"`
}

// NewLeg creates a leg. Sequence is assigned by the owning itinerary.
func NewLeg(origin, destination Endpoint, departureAt *time.Time, passengers int) (Leg, error) {
	if passengers < 0 {
		return Leg{}, apperror.NewValidationError("passengers cannot be negative")
	}
	if origin.Code == "" || destination.Code == "" {
		return Leg{}, apperror.NewValidationError("leg origin and destination are required")
	}
	return Leg{
		Origin:      origin,
		Destination: destination,
		DepartureAt: departureAt,
		Passengers:  passengers,
	}, nil
}

// DistanceKm returns the great-circle length of the leg.
func (l Leg) DistanceKm() float64 {
	return l.Origin.Point.DistanceKm(l.Destination.Point)
}

// AircraftCategory is the cabin class a charter is quoted for.
type AircraftCategory string

const (
	CategoryLight        AircraftCategory = "light"
	CategoryMidsize      AircraftCategory = "midsize"
	CategorySuperMidsize AircraftCategory = "super_midsize"
	CategoryHeavy        AircraftCategory = "heavy"
)

// IsValid returns true if the category is recognized.
func (c AircraftCategory) IsValid() bool {
	switch c {
	case CategoryLight, CategoryMidsize, CategorySuperMidsize, CategoryHeavy:
		return true
	}
	return false
}

// ParseAircraftCategory maps an empty string to midsize and rejects unknown values.
func ParseAircraftCategory(s string) (AircraftCategory, error) {
	if s == "" {
		return CategoryMidsize, nil
	}
	c := AircraftCategory(strings.ToLower(s))
	if !c.IsValid() {
		return "", apperror.NewValidationError(fmt.Sprintf("invalid aircraft category: %s", s))
	}
	return c, nil
}
