package itinerary

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
	"github.com/google/uuid"
)

const (
	referenceChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxLegs        = 12
)

// Itinerary is the aggregate root for a parsed charter request and its legs.
type Itinerary struct {
	id               uuid.UUID
	reference        string
	requestText      string
	status           Status
	aircraftCategory AircraftCategory
	legs             []Leg

	cancelledAt *time.Time
	cancelNote  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateReference creates a reference in the format "IT-XXXXXX".
func generateReference() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate itinerary reference: %w", err)
		}
		result[i] = referenceChars[n.Int64()]
	}
	return "IT-" + string(result), nil
}

// NewItinerary creates an active itinerary. A nil id gets a fresh one; the
// upstream parser may supply its own so redelivered events stay idempotent.
// Legs are numbered 1..n in the order given.
func NewItinerary(id uuid.UUID, requestText string, category AircraftCategory, legs []Leg) (*Itinerary, error) {
	if len(legs) == 0 {
		return nil, apperror.NewValidationError("itinerary needs at least one leg")
	}
	if len(legs) > maxLegs {
		return nil, apperror.NewValidationError(fmt.Sprintf("itinerary has %d legs, at most %d allowed", len(legs), maxLegs))
	}
	if !category.IsValid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid aircraft category: %s", category))
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	reference, err := generateReference()
	if err != nil {
		return nil, err
	}

	numbered := make([]Leg, len(legs))
	for i, leg := range legs {
		leg.Sequence = i + 1
		numbered[i] = leg
	}

	now := time.Now().UTC()
	return &Itinerary{
		id:               id,
		reference:        reference,
		requestText:      strings.TrimSpace(requestText),
		status:           StatusActive,
		aircraftCategory: category,
		legs:             numbered,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstruct rebuilds an Itinerary from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	reference string,
	requestText string,
	status Status,
	category AircraftCategory,
	legs []Leg,
	cancelledAt *time.Time,
	cancelNote string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Itinerary {
	return &Itinerary{
		id:               id,
		reference:        reference,
		requestText:      requestText,
		status:           status,
		aircraftCategory: category,
		legs:             legs,
		cancelledAt:      cancelledAt,
		cancelNote:       cancelNote,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// --- Getters ---

// ID returns the itinerary's unique identifier.
func (it *Itinerary) ID() uuid.UUID { return it.id }

// Reference returns the human-readable reference.
func (it *Itinerary) Reference() string { return it.reference }

// RequestText returns the natural-language request the itinerary was parsed from.
func (it *Itinerary) RequestText() string { return it.requestText }

// Status returns the current lifecycle status.
func (it *Itinerary) Status() Status { return it.status }

// AircraftCategory returns the category used for block time estimates.
func (it *Itinerary) AircraftCategory() AircraftCategory { return it.aircraftCategory }

// Legs returns a copy of the legs in sequence order.
func (it *Itinerary) Legs() []Leg {
	legs := make([]Leg, len(it.legs))
	copy(legs, it.legs)
	return legs
}

// CancelledAt returns when the itinerary was cancelled, if it was.
func (it *Itinerary) CancelledAt() *time.Time { return it.cancelledAt }

// CancelNote returns the cancellation reason.
func (it *Itinerary) CancelNote() string { return it.cancelNote }

// Version returns the entity version for optimistic locking.
func (it *Itinerary) Version() int64 { return it.version }

// CreatedAt returns the creation timestamp.
func (it *Itinerary) CreatedAt() time.Time { return it.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (it *Itinerary) UpdatedAt() time.Time { return it.updatedAt }

// --- Behavior ---

// Leg returns the leg with the given 1-based sequence number.
func (it *Itinerary) Leg(sequence int) (Leg, error) {
	if sequence < 1 || sequence > len(it.legs) {
		return Leg{}, apperror.NewNotFoundError("Leg", fmt.Sprintf("%s#%d", it.id, sequence))
	}
	return it.legs[sequence-1], nil
}

// Cancel transitions the itinerary from active to cancelled.
func (it *Itinerary) Cancel(reason string) error {
	if !it.status.CanTransitionTo(StatusCancelled) {
		return apperror.NewInvalidStateError(string(it.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	it.status = StatusCancelled
	it.cancelledAt = &now
	it.cancelNote = reason
	it.updatedAt = now
	return nil
}

// Archive transitions the itinerary from active to archived.
func (it *Itinerary) Archive() error {
	if !it.status.CanTransitionTo(StatusArchived) {
		return apperror.NewInvalidStateError(string(it.status), string(StatusArchived))
	}
	it.status = StatusArchived
	it.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (it *Itinerary) IncrementVersion() {
	it.version++
}
