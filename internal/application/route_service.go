package application

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aerocharter/service-flightpath/internal/config"
	"github.com/aerocharter/service-flightpath/internal/domain/geo"
	itineraryDomain "github.com/aerocharter/service-flightpath/internal/domain/itinerary"
	"github.com/aerocharter/service-flightpath/internal/mapexport"
	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
	"github.com/aerocharter/service-flightpath/internal/platform/kafka"
	"github.com/aerocharter/service-flightpath/internal/platform/metrics"
	"github.com/aerocharter/service-flightpath/internal/proto/dto"
	"github.com/aerocharter/service-flightpath/internal/proto/events"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

const eventSource = "service-flightpath"

// EventPublisher publishes CloudEvents; *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, ce kafka.CloudEvent) error
}

// RegisterItineraryRequest holds a parsed itinerary to keep for route rendering.
type RegisterItineraryRequest struct {
	ID               *uuid.UUID   `json:"id"`
	RequestText      string       `json:"request_text"`
	AircraftCategory string       `json:"aircraft_category"`
	Legs             []dto.LegDTO `json:"legs" binding:"required,min=1,dive"`
}

// CancelItineraryRequest holds the optional cancellation reason.
type CancelItineraryRequest struct {
	Reason string `json:"reason"`
}

// PathRequest carries the arc parameters a client asked for. A nil field
// selects the configured default; an explicit value is range checked.
type PathRequest struct {
	Steps      *int     `json:"steps"`
	CurveRatio *float64 `json:"curve_ratio"`
}

// PreviewRouteRequest asks for an ad-hoc arc between two airports.
type PreviewRouteRequest struct {
	Origin           dto.AirportDTO `json:"origin" binding:"required"`
	Destination      dto.AirportDTO `json:"destination" binding:"required"`
	AircraftCategory string         `json:"aircraft_category"`
	PathRequest
}

// ItineraryDTO is the response representation of an itinerary.
type ItineraryDTO struct {
	ID               uuid.UUID             `json:"id"`
	Reference        string                `json:"reference"`
	RequestText      string                `json:"request_text,omitempty"`
	Status           string                `json:"status"`
	AircraftCategory string                `json:"aircraft_category"`
	Legs             []itineraryDomain.Leg `json:"legs"`
	CancelledAt      *time.Time            `json:"cancelled_at,omitempty"`
	CancelNote       string                `json:"cancel_note,omitempty"`
	Version          int64                 `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// BoundsDTO is the south-west / north-east box around a path.
type BoundsDTO struct {
	SouthWest geo.GeoPoint `json:"south_west"`
	NorthEast geo.GeoPoint `json:"north_east"`
}

// LegRouteDTO is the response representation of one drawable leg.
type LegRouteDTO struct {
	ItineraryID          *uuid.UUID               `json:"itinerary_id,omitempty"`
	Sequence             int                      `json:"sequence"`
	Origin               itineraryDomain.Endpoint `json:"origin"`
	Destination          itineraryDomain.Endpoint `json:"destination"`
	DistanceKm           float64                  `json:"distance_km"`
	DistanceNm           float64                  `json:"distance_nm"`
	EstimatedDurationMin int                      `json:"estimated_duration_min"`
	Steps                int                      `json:"steps"`
	CurveRatio           float64                  `json:"curve_ratio"`
	Points               []geo.GeoPoint           `json:"points"`
	Bounds               BoundsDTO                `json:"bounds"`
}

// ItineraryStatsDTO holds aggregate itinerary counts.
type ItineraryStatsDTO struct {
	TotalItineraries int64            `json:"total_itineraries"`
	ByStatus         map[string]int64 `json:"by_status"`
}

// RouteMapService is the application service behind the itinerary map.
type RouteMapService struct {
	repo      itineraryDomain.Repository
	estimator itineraryDomain.FlightTimeEstimator
	publisher EventPublisher
	paths     config.PathsConfig
	logger    *zap.Logger
}

// NewRouteMapService creates a new RouteMapService.
func NewRouteMapService(
	repo itineraryDomain.Repository,
	estimator itineraryDomain.FlightTimeEstimator,
	publisher EventPublisher,
	paths config.PathsConfig,
	logger *zap.Logger,
) *RouteMapService {
	return &RouteMapService{
		repo:      repo,
		estimator: estimator,
		publisher: publisher,
		paths:     paths,
		logger:    logger,
	}
}

// RegisterItinerary stores a parsed itinerary. Registering an ID that already
// exists returns the stored itinerary unchanged.
func (s *RouteMapService) RegisterItinerary(ctx context.Context, req RegisterItineraryRequest) (*ItineraryDTO, error) {
	var id uuid.UUID
	if req.ID != nil {
		id = *req.ID
		existing, err := s.repo.FindByID(ctx, id)
		if err == nil {
			s.logger.Info("itinerary already registered", zap.String("itinerary_id", id.String()))
			result := toItineraryDTO(existing)
			return &result, nil
		}
		if !apperror.Is(err, apperror.CodeNotFound) {
			return nil, err
		}
	}

	category, err := itineraryDomain.ParseAircraftCategory(req.AircraftCategory)
	if err != nil {
		return nil, err
	}

	legs := make([]itineraryDomain.Leg, len(req.Legs))
	for i, l := range req.Legs {
		leg, err := buildLeg(l)
		if err != nil {
			return nil, err
		}
		legs[i] = leg
	}

	it, err := itineraryDomain.NewItinerary(id, req.RequestText, category, legs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, it); err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}

	var totalKm float64
	for _, leg := range it.Legs() {
		totalKm += leg.DistanceKm()
	}
	s.publishEvent(ctx, events.FlightPathItineraryRegistered, it.ID().String(), events.ItineraryRegisteredEvent{
		ItineraryID:     it.ID(),
		Reference:       it.Reference(),
		LegCount:        len(legs),
		TotalDistanceKm: totalKm,
		OccurredAt:      time.Now().UTC(),
	})

	s.logger.Info("itinerary registered",
		zap.String("itinerary_id", it.ID().String()),
		zap.String("reference", it.Reference()),
		zap.Int("legs", len(legs)),
	)

	result := toItineraryDTO(it)
	return &result, nil
}

// GetItinerary retrieves a single itinerary by ID.
func (s *RouteMapService) GetItinerary(ctx context.Context, id uuid.UUID) (*ItineraryDTO, error) {
	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toItineraryDTO(it)
	return &result, nil
}

// GetItineraryByReference retrieves a single itinerary by its reference.
func (s *RouteMapService) GetItineraryByReference(ctx context.Context, reference string) (*ItineraryDTO, error) {
	it, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	result := toItineraryDTO(it)
	return &result, nil
}

// CancelItinerary cancels an active itinerary.
func (s *RouteMapService) CancelItinerary(ctx context.Context, id uuid.UUID, reason string) (*ItineraryDTO, error) {
	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := it.Cancel(reason); err != nil {
		return nil, err
	}

	it.IncrementVersion()
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.FlightPathItineraryCancelled, it.ID().String(), events.ItineraryClosedEvent{
		ItineraryID: it.ID(),
		Reference:   it.Reference(),
		Status:      string(it.Status()),
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})

	result := toItineraryDTO(it)
	return &result, nil
}

// ArchiveItinerary archives an active itinerary.
func (s *RouteMapService) ArchiveItinerary(ctx context.Context, id uuid.UUID) (*ItineraryDTO, error) {
	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := it.Archive(); err != nil {
		return nil, err
	}

	it.IncrementVersion()
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.FlightPathItineraryArchived, it.ID().String(), events.ItineraryClosedEvent{
		ItineraryID: it.ID(),
		Reference:   it.Reference(),
		Status:      string(it.Status()),
		OccurredAt:  time.Now().UTC(),
	})

	result := toItineraryDTO(it)
	return &result, nil
}

// BuildItineraryRoutes computes a curved route for every leg of an itinerary.
func (s *RouteMapService) BuildItineraryRoutes(ctx context.Context, id uuid.UUID, req PathRequest) ([]LegRouteDTO, error) {
	it, routes, opts, err := s.planItinerary(ctx, id, req)
	if err != nil {
		return nil, err
	}

	itineraryID := it.ID()
	dtos := make([]LegRouteDTO, len(routes))
	for i, r := range routes {
		dtos[i] = toLegRouteDTO(r, opts)
		dtos[i].ItineraryID = &itineraryID
	}
	return dtos, nil
}

// BuildLegRoute computes the curved route for a single leg, e.g. the one under the cursor.
func (s *RouteMapService) BuildLegRoute(ctx context.Context, id uuid.UUID, sequence int, req PathRequest) (*LegRouteDTO, error) {
	opts, err := s.resolvePathOptions(req)
	if err != nil {
		return nil, err
	}

	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	leg, err := it.Leg(sequence)
	if err != nil {
		return nil, err
	}

	route, err := itineraryDomain.PlanLegRoute(leg, it.AircraftCategory(), s.estimator, opts)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}
	recordPath(route.Path)

	itineraryID := it.ID()
	result := toLegRouteDTO(route, opts)
	result.ItineraryID = &itineraryID
	return &result, nil
}

// PreviewRoute computes a curved route between two airports without storing anything.
func (s *RouteMapService) PreviewRoute(req PreviewRouteRequest) (*LegRouteDTO, error) {
	opts, err := s.resolvePathOptions(req.PathRequest)
	if err != nil {
		return nil, err
	}

	category, err := itineraryDomain.ParseAircraftCategory(req.AircraftCategory)
	if err != nil {
		return nil, err
	}

	leg, err := buildLeg(dto.LegDTO{Origin: req.Origin, Destination: req.Destination})
	if err != nil {
		return nil, err
	}
	leg.Sequence = 1

	route, err := itineraryDomain.PlanLegRoute(leg, category, s.estimator, opts)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}
	recordPath(route.Path)

	result := toLegRouteDTO(route, opts)
	return &result, nil
}

// ItineraryFeatureCollection renders every leg of an itinerary as GeoJSON.
func (s *RouteMapService) ItineraryFeatureCollection(ctx context.Context, id uuid.UUID, req PathRequest) (*geojson.FeatureCollection, error) {
	it, routes, _, err := s.planItinerary(ctx, id, req)
	if err != nil {
		return nil, err
	}

	fc := mapexport.LegRoutesToFeatureCollection(routes)
	fc.ExtraMembers = geojson.Properties{
		"itinerary_id": it.ID().String(),
		"reference":    it.Reference(),
		"status":       string(it.Status()),
	}
	return fc, nil
}

// ListItineraries returns a paginated list of all itineraries.
func (s *RouteMapService) ListItineraries(ctx context.Context, page, limit int) ([]ItineraryDTO, int64, error) {
	itineraries, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list itineraries: %w", err)
	}

	dtos := make([]ItineraryDTO, len(itineraries))
	for i, it := range itineraries {
		dtos[i] = toItineraryDTO(it)
	}
	return dtos, total, nil
}

// GetStats returns aggregate itinerary statistics.
func (s *RouteMapService) GetStats(ctx context.Context) (*ItineraryStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &ItineraryStatsDTO{
		TotalItineraries: total,
		ByStatus:         counts,
	}, nil
}

// --- Helpers ---

func (s *RouteMapService) planItinerary(ctx context.Context, id uuid.UUID, req PathRequest) (*itineraryDomain.Itinerary, []itineraryDomain.LegRoute, geo.PathOptions, error) {
	opts, err := s.resolvePathOptions(req)
	if err != nil {
		return nil, nil, geo.PathOptions{}, err
	}

	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, geo.PathOptions{}, err
	}

	legs := it.Legs()
	routes := make([]itineraryDomain.LegRoute, len(legs))
	for i, leg := range legs {
		route, err := itineraryDomain.PlanLegRoute(leg, it.AircraftCategory(), s.estimator, opts)
		if err != nil {
			return nil, nil, geo.PathOptions{}, apperror.NewValidationError(err.Error())
		}
		recordPath(route.Path)
		routes[i] = route
	}
	return it, routes, opts, nil
}

// resolvePathOptions applies configured defaults and rejects out-of-range values.
func (s *RouteMapService) resolvePathOptions(req PathRequest) (geo.PathOptions, error) {
	opts := geo.PathOptions{Steps: s.paths.DefaultSteps, CurveRatio: s.paths.DefaultCurveRatio}

	if req.Steps != nil {
		steps := *req.Steps
		if steps < 1 || steps > s.paths.MaxSteps {
			return geo.PathOptions{}, apperror.NewValidationError(
				fmt.Sprintf("steps must be between 1 and %d", s.paths.MaxSteps))
		}
		opts.Steps = steps
	}

	if req.CurveRatio != nil {
		r := *req.CurveRatio
		if math.IsNaN(r) || r < 0 || r > s.paths.MaxCurveRatio {
			return geo.PathOptions{}, apperror.NewValidationError(
				fmt.Sprintf("curve_ratio must be between 0 and %g", s.paths.MaxCurveRatio))
		}
		opts.CurveRatio = r
	}
	return opts, nil
}

func buildLeg(l dto.LegDTO) (itineraryDomain.Leg, error) {
	origin, err := buildEndpoint(l.Origin)
	if err != nil {
		return itineraryDomain.Leg{}, err
	}
	destination, err := buildEndpoint(l.Destination)
	if err != nil {
		return itineraryDomain.Leg{}, err
	}
	return itineraryDomain.NewLeg(origin, destination, l.DepartureAt, l.Passengers)
}

func buildEndpoint(a dto.AirportDTO) (itineraryDomain.Endpoint, error) {
	if a.Latitude == nil || a.Longitude == nil {
		return itineraryDomain.Endpoint{}, apperror.NewValidationError(
			fmt.Sprintf("airport %q is missing coordinates", a.Code))
	}
	return itineraryDomain.NewEndpoint(a.Code, a.Name, *a.Latitude, *a.Longitude)
}

func recordPath(p geo.CurvedPath) {
	kind := "curved"
	if p.IsDegenerate() {
		kind = "degenerate"
	}
	metrics.PathsBuilt.WithLabelValues(kind).Inc()
}

func toItineraryDTO(it *itineraryDomain.Itinerary) ItineraryDTO {
	return ItineraryDTO{
		ID:               it.ID(),
		Reference:        it.Reference(),
		RequestText:      it.RequestText(),
		Status:           string(it.Status()),
		AircraftCategory: string(it.AircraftCategory()),
		Legs:             it.Legs(),
		CancelledAt:      it.CancelledAt(),
		CancelNote:       it.CancelNote(),
		Version:          it.Version(),
		CreatedAt:        it.CreatedAt(),
		UpdatedAt:        it.UpdatedAt(),
	}
}

func toLegRouteDTO(r itineraryDomain.LegRoute, opts geo.PathOptions) LegRouteDTO {
	sw, ne := r.Path.Bounds()
	return LegRouteDTO{
		Sequence:             r.Sequence,
		Origin:               r.Origin,
		Destination:          r.Destination,
		DistanceKm:           r.DistanceKm,
		DistanceNm:           r.DistanceNm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		Steps:                opts.Steps,
		CurveRatio:           opts.CurveRatio,
		Points:               r.Path.Points,
		Bounds:               BoundsDTO{SouthWest: sw, NorthEast: ne},
	}
}

func (s *RouteMapService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, events.TopicFlightPathEvents, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", events.TopicFlightPathEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
