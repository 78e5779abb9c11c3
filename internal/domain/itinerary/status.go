package itinerary

import "fmt"

// Status represents where an itinerary is in its lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
)

// validTransitions defines the state machine for itinerary status transitions.
var validTransitions = map[Status][]Status{
	StatusActive:    {StatusCancelled, StatusArchived},
	StatusCancelled: {},
	StatusArchived:  {},
}

// IsValid returns true if the status is a recognized itinerary status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid itinerary status: %s", s)
	}
	return status, nil
}
