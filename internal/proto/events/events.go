package events

import (
	"time"

	"github.com/aerocharter/service-flightpath/internal/proto/dto"
	"github.com/google/uuid"
)

// Topics.
const (
	TopicItineraryEvents  = "itinerary.events"
	TopicFlightPathEvents = "flightpath.events"
)

// Event types consumed from the itinerary parser.
const (
	ItineraryParsed    = "itinerary.parsed"
	ItineraryCancelled = "itinerary.cancelled"
)

// Event types published by this service.
const (
	FlightPathItineraryRegistered = "flightpath.itinerary_registered"
	FlightPathItineraryCancelled  = "flightpath.itinerary_cancelled"
	FlightPathItineraryArchived   = "flightpath.itinerary_archived"
)

// ItineraryParsedEvent is emitted once a natural-language request has been parsed into legs.
type ItineraryParsedEvent struct {
	ItineraryID      uuid.UUID    `json:"itinerary_id"`
	RequestText      string       `json:"request_text"`
	AircraftCategory string       `json:"aircraft_category"`
	Legs             []dto.LegDTO `json:"legs"`
	OccurredAt       time.Time    `json:"occurred_at"`
}

// ItineraryCancelledEvent is emitted when the client abandons a request.
type ItineraryCancelledEvent struct {
	ItineraryID uuid.UUID `json:"itinerary_id"`
	Reason      string    `json:"reason"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ItineraryRegisteredEvent announces that routes are available for an itinerary.
type ItineraryRegisteredEvent struct {
	ItineraryID     uuid.UUID `json:"itinerary_id"`
	Reference       string    `json:"reference"`
	LegCount        int       `json:"leg_count"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ItineraryClosedEvent announces that an itinerary was cancelled or archived.
type ItineraryClosedEvent struct {
	ItineraryID uuid.UUID `json:"itinerary_id"`
	Reference   string    `json:"reference"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
