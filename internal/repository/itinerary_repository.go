package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	itineraryDomain "github.com/aerocharter/service-flightpath/internal/domain/itinerary"
	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItineraryModel is the GORM model for the itineraries table.
type ItineraryModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Reference        string          `gorm:"uniqueIndex;not null;size:20"`
	RequestText      string          `gorm:"type:text"`
	Status           string          `gorm:"not null;size:20;index"`
	AircraftCategory string          `gorm:"not null;size:20"`
	Legs             json.RawMessage `gorm:"type:jsonb;not null"`
	LegCount         int             `gorm:"not null"`
	CancelledAt      *time.Time      `gorm:""`
	CancelNote       string          `gorm:"size:500"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null;index"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ItineraryModel) TableName() string {
	return "itineraries"
}

// GormItineraryRepository is the GORM-based implementation of itinerary.Repository.
type GormItineraryRepository struct {
	db *gorm.DB
}

// NewGormItineraryRepository creates a new GormItineraryRepository.
func NewGormItineraryRepository(db *gorm.DB) *GormItineraryRepository {
	return &GormItineraryRepository{db: db}
}

// FindByID retrieves an itinerary by its unique identifier.
func (r *GormItineraryRepository) FindByID(ctx context.Context, id uuid.UUID) (*itineraryDomain.Itinerary, error) {
	var model ItineraryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Itinerary", id.String())
		}
		return nil, fmt.Errorf("failed to find itinerary by ID: %w", err)
	}
	return toDomainItinerary(&model)
}

// FindByReference retrieves an itinerary by its reference.
func (r *GormItineraryRepository) FindByReference(ctx context.Context, reference string) (*itineraryDomain.Itinerary, error) {
	var model ItineraryModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Itinerary", reference)
		}
		return nil, fmt.Errorf("failed to find itinerary by reference: %w", err)
	}
	return toDomainItinerary(&model)
}

// ListAll retrieves all itineraries with pagination, newest first.
func (r *GormItineraryRepository) ListAll(ctx context.Context, page, limit int) ([]*itineraryDomain.Itinerary, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ItineraryModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count itineraries: %w", err)
	}

	var models []ItineraryModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list itineraries: %w", err)
	}

	itineraries := make([]*itineraryDomain.Itinerary, len(models))
	for i := range models {
		it, err := toDomainItinerary(&models[i])
		if err != nil {
			return nil, 0, err
		}
		itineraries[i] = it
	}
	return itineraries, total, nil
}

// CountByStatus returns itinerary counts grouped by status.
func (r *GormItineraryRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&ItineraryModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new itinerary.
func (r *GormItineraryRepository) Save(ctx context.Context, it *itineraryDomain.Itinerary) error {
	model, err := toItineraryModel(it)
	if err != nil {
		return fmt.Errorf("failed to convert itinerary to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewConflictError(fmt.Sprintf("itinerary %s already exists", it.ID()))
		}
		return fmt.Errorf("failed to save itinerary: %w", err)
	}
	return nil
}

// Update persists changes to an existing itinerary with optimistic locking.
func (r *GormItineraryRepository) Update(ctx context.Context, it *itineraryDomain.Itinerary) error {
	model, err := toItineraryModel(it)
	if err != nil {
		return fmt.Errorf("failed to convert itinerary to model: %w", err)
	}

	// The caller has already called IncrementVersion, so the stored row must be one behind.
	expectedVersion := it.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&ItineraryModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"legs":         model.Legs,
			"leg_count":    model.LegCount,
			"cancelled_at": model.CancelledAt,
			"cancel_note":  model.CancelNote,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update itinerary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewConflictError("itinerary was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toItineraryModel(it *itineraryDomain.Itinerary) (*ItineraryModel, error) {
	legs := it.Legs()
	legsJSON, err := json.Marshal(legs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal legs: %w", err)
	}

	return &ItineraryModel{
		ID:               it.ID(),
		Reference:        it.Reference(),
		RequestText:      it.RequestText(),
		Status:           string(it.Status()),
		AircraftCategory: string(it.AircraftCategory()),
		Legs:             legsJSON,
		LegCount:         len(legs),
		CancelledAt:      it.CancelledAt(),
		CancelNote:       it.CancelNote(),
		Version:          it.Version(),
		CreatedAt:        it.CreatedAt(),
		UpdatedAt:        it.UpdatedAt(),
	}, nil
}

func toDomainItinerary(m *ItineraryModel) (*itineraryDomain.Itinerary, error) {
	var legs []itineraryDomain.Leg
	if err := json.Unmarshal(m.Legs, &legs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legs: %w", err)
	}

	status, err := itineraryDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return itineraryDomain.Reconstruct(
		m.ID,
		m.Reference,
		m.RequestText,
		status,
		itineraryDomain.AircraftCategory(m.AircraftCategory),
		legs,
		m.CancelledAt,
		m.CancelNote,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
