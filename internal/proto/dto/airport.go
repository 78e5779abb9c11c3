package dto

import "time"

// AirportDTO is an airport as carried in requests and events. Coordinates are
// pointers so a missing value can be told apart from 0.
type AirportDTO struct {
	Code      string   `json:"code" binding:"required"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// LegDTO is one leg of an itinerary as produced by the request parser.
type LegDTO struct {
	Origin      AirportDTO `json:"origin" binding:"required"`
	Destination AirportDTO `json:"destination" binding:"required"`
	DepartureAt *time.Time `json:"departure_at"`
	Passengers  int        `json:"passengers"`
}
