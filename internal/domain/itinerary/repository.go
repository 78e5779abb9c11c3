package itinerary

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for itinerary aggregates.
type Repository interface {
	// FindByID retrieves an itinerary by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Itinerary, error)

	// FindByReference retrieves an itinerary by its human-readable reference.
	FindByReference(ctx context.Context, reference string) (*Itinerary, error)

	// ListAll retrieves all itineraries with pagination, newest first.
	ListAll(ctx context.Context, page, limit int) ([]*Itinerary, int64, error)

	// CountByStatus returns itinerary counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new itinerary.
	Save(ctx context.Context, it *Itinerary) error

	// Update persists changes to an existing itinerary with optimistic locking.
	Update(ctx context.Context, it *Itinerary) error
}
