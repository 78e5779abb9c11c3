package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/aerocharter/service-flightpath/internal/config"
	itineraryDomain "github.com/aerocharter/service-flightpath/internal/domain/itinerary"
	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
	"github.com/aerocharter/service-flightpath/internal/platform/kafka"
	"github.com/aerocharter/service-flightpath/internal/platform/metrics"
	"github.com/aerocharter/service-flightpath/internal/proto/dto"
	"github.com/aerocharter/service-flightpath/internal/proto/events"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*itineraryDomain.Itinerary
	order []uuid.UUID
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: make(map[uuid.UUID]*itineraryDomain.Itinerary)}
}

func (r *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (*itineraryDomain.Itinerary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, apperror.NewNotFoundError("Itinerary", id.String())
	}
	return it, nil
}

func (r *memoryRepository) FindByReference(_ context.Context, reference string) (*itineraryDomain.Itinerary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Reference() == reference {
			return it, nil
		}
	}
	return nil, apperror.NewNotFoundError("Itinerary", reference)
}

func (r *memoryRepository) ListAll(_ context.Context, page, limit int) ([]*itineraryDomain.Itinerary, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*itineraryDomain.Itinerary
	start := (page - 1) * limit
	for i := start; i < len(r.order) && i < start+limit; i++ {
		result = append(result, r.items[r.order[i]])
	}
	return result, int64(len(r.order)), nil
}

func (r *memoryRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, it := range r.items {
		counts[string(it.Status())]++
	}
	return counts, nil
}

func (r *memoryRepository) Save(_ context.Context, it *itineraryDomain.Itinerary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID()]; ok {
		return apperror.NewConflictError("itinerary already exists")
	}
	r.items[it.ID()] = it
	r.order = append(r.order, it.ID())
	return nil
}

func (r *memoryRepository) Update(_ context.Context, it *itineraryDomain.Itinerary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID()] = it
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	keys   []string
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic != events.TopicFlightPathEvents {
		return errors.New("unexpected topic " + topic)
	}
	p.events = append(p.events, ce)
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func intPtr(v int) *int { return &v }

func testPathsConfig() config.PathsConfig {
	return config.PathsConfig{
		DefaultSteps:      32,
		MaxSteps:          512,
		DefaultCurveRatio: 0.15,
		MaxCurveRatio:     1.0,
	}
}

func newTestService(t *testing.T) (*RouteMapService, *memoryRepository, *recordingPublisher) {
	t.Helper()
	repo := newMemoryRepository()
	pub := &recordingPublisher{}
	svc := NewRouteMapService(repo, itineraryDomain.NewStandardFlightTimeEstimator(), pub, testPathsConfig(), zap.NewNop())
	return svc, repo, pub
}

func airport(code string, lat, lng float64) dto.AirportDTO {
	return dto.AirportDTO{Code: code, Latitude: &lat, Longitude: &lng}
}

func tebToPbiRequest() RegisterItineraryRequest {
	return RegisterItineraryRequest{
		RequestText:      "Teterboro to Palm Beach, then back",
		AircraftCategory: "midsize",
		Legs: []dto.LegDTO{
			{Origin: airport("TEB", 40.8501, -74.0608), Destination: airport("PBI", 26.6832, -80.0956), Passengers: 6},
			{Origin: airport("PBI", 26.6832, -80.0956), Destination: airport("TEB", 40.8501, -74.0608), Passengers: 6},
		},
	}
}

func TestRegisterItinerary(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	result, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Regexp(t, `^IT-[A-Z0-9]{6}$`, result.Reference)
	assert.Equal(t, "active", result.Status)
	assert.Equal(t, "midsize", result.AircraftCategory)
	require.Len(t, result.Legs, 2)
	assert.Equal(t, 1, result.Legs[0].Sequence)
	assert.Equal(t, "PBI", result.Legs[1].Origin.Code)

	assert.Equal(t, []string{events.FlightPathItineraryRegistered}, pub.types())
	assert.Equal(t, result.ID.String(), pub.keys[0])

	var evt events.ItineraryRegisteredEvent
	require.NoError(t, pub.events[0].ParseData(&evt))
	assert.Equal(t, 2, evt.LegCount)
	assert.InDelta(t, 2*1670, evt.TotalDistanceKm, 10)
}

func TestRegisterItinerary_IdempotentOnID(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	id := uuid.New()
	req := tebToPbiRequest()
	req.ID = &id

	first, err := svc.RegisterItinerary(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	second, err := svc.RegisterItinerary(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)
	assert.Len(t, pub.types(), 1)
}

func TestRegisterItinerary_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *RegisterItineraryRequest)
	}{
		{"missing coordinates", func(r *RegisterItineraryRequest) {
			r.Legs[0].Origin.Latitude = nil
		}},
		{"latitude out of range", func(r *RegisterItineraryRequest) {
			lat := 91.0
			r.Legs[0].Destination.Latitude = &lat
		}},
		{"bad airport code", func(r *RegisterItineraryRequest) {
			r.Legs[1].Origin.Code = "X"
		}},
		{"unknown category", func(r *RegisterItineraryRequest) {
			r.AircraftCategory = "rocket"
		}},
		{"no legs", func(r *RegisterItineraryRequest) {
			r.Legs = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tebToPbiRequest()
			tt.mutate(&req)
			_, err := svc.RegisterItinerary(ctx, req)
			assert.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestRegisterItinerary_PublishFailureDoesNotFail(t *testing.T) {
	svc, repo, pub := newTestService(t)
	pub.err = errors.New("broker down")

	result, err := svc.RegisterItinerary(context.Background(), tebToPbiRequest())
	require.NoError(t, err)

	_, err = repo.FindByID(context.Background(), result.ID)
	assert.NoError(t, err)
}

func TestGetItinerary(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	byID, err := svc.GetItinerary(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Reference, byID.Reference)

	byRef, err := svc.GetItineraryByReference(ctx, created.Reference)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byRef.ID)

	_, err = svc.GetItinerary(ctx, uuid.New())
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestCancelAndArchiveItinerary(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	first, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)
	second, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	cancelled, err := svc.CancelItinerary(ctx, first.ID, "client changed plans")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "client changed plans", cancelled.CancelNote)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, int64(2), cancelled.Version)

	_, err = svc.ArchiveItinerary(ctx, first.ID)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidState))

	archived, err := svc.ArchiveItinerary(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "archived", archived.Status)

	assert.Equal(t, []string{
		events.FlightPathItineraryRegistered,
		events.FlightPathItineraryRegistered,
		events.FlightPathItineraryCancelled,
		events.FlightPathItineraryArchived,
	}, pub.types())

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalItineraries)
	assert.Equal(t, int64(1), stats.ByStatus["cancelled"])
	assert.Equal(t, int64(1), stats.ByStatus["archived"])
}

func TestBuildItineraryRoutes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	routes, err := svc.BuildItineraryRoutes(ctx, created.ID, PathRequest{})
	require.NoError(t, err)
	require.Len(t, routes, 2)

	out := routes[0]
	assert.Equal(t, 1, out.Sequence)
	assert.Equal(t, created.ID, *out.ItineraryID)
	assert.Equal(t, 32, out.Steps)
	assert.Equal(t, 0.15, out.CurveRatio)
	require.Len(t, out.Points, 33)
	assert.Equal(t, out.Origin.Point, out.Points[0])
	assert.Equal(t, out.Destination.Point, out.Points[32])
	assert.InDelta(t, 1670, out.DistanceKm, 5)
	assert.Equal(t, 149, out.EstimatedDurationMin)
	assert.LessOrEqual(t, out.Bounds.SouthWest.Lat, 26.6832)
	assert.GreaterOrEqual(t, out.Bounds.NorthEast.Lat, 40.8501)

	// The return leg bows to the opposite side of the chord.
	back := routes[1]
	assert.NotEqual(t, out.Points[16], back.Points[16])
	assert.InDelta(t, out.Points[16].Lat+back.Points[16].Lat, out.Points[0].Lat+out.Points[32].Lat, 1e-9)
}

func TestBuildItineraryRoutes_PathRequestBounds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	zero := 0.0
	routes, err := svc.BuildItineraryRoutes(ctx, created.ID, PathRequest{Steps: intPtr(4), CurveRatio: &zero})
	require.NoError(t, err)
	require.Len(t, routes[0].Points, 5)
	assert.Equal(t, 0.0, routes[0].CurveRatio)

	tooCurved := 1.5
	negative := -0.1
	for _, req := range []PathRequest{
		{Steps: intPtr(-1)},
		{Steps: intPtr(0)},
		{Steps: intPtr(513)},
		{CurveRatio: &tooCurved},
		{CurveRatio: &negative},
	} {
		_, err := svc.BuildItineraryRoutes(ctx, created.ID, req)
		assert.True(t, apperror.Is(err, apperror.CodeValidation), "request %+v", req)
	}
}

func TestBuildLegRoute(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	route, err := svc.BuildLegRoute(ctx, created.ID, 2, PathRequest{Steps: intPtr(8)})
	require.NoError(t, err)
	assert.Equal(t, 2, route.Sequence)
	assert.Equal(t, "PBI", route.Origin.Code)
	require.Len(t, route.Points, 9)

	_, err = svc.BuildLegRoute(ctx, created.ID, 3, PathRequest{})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestPreviewRoute(t *testing.T) {
	svc, repo, _ := newTestService(t)

	route, err := svc.PreviewRoute(PreviewRouteRequest{
		Origin:           airport("AAA", 0, 0),
		Destination:      airport("BBB", 0, 10),
		AircraftCategory: "heavy",
		PathRequest:      PathRequest{Steps: intPtr(2)},
	})
	require.NoError(t, err)
	assert.Nil(t, route.ItineraryID)
	require.Len(t, route.Points, 3)
	assert.InDelta(t, 5, route.Points[1].Lng, 1e-9)
	assert.InDelta(t, -0.75, route.Points[1].Lat, 1e-9)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestPreviewRoute_ZeroStepsIsValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PreviewRoute(PreviewRouteRequest{
		Origin:      airport("AAA", 0, 0),
		Destination: airport("BBB", 0, 10),
		PathRequest: PathRequest{Steps: intPtr(0)},
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestPreviewRoute_SameAirport(t *testing.T) {
	svc, _, _ := newTestService(t)
	degenerate := metrics.PathsBuilt.WithLabelValues("degenerate")
	curved := metrics.PathsBuilt.WithLabelValues("curved")
	degenerateBefore := testutil.ToFloat64(degenerate)
	curvedBefore := testutil.ToFloat64(curved)

	route, err := svc.PreviewRoute(PreviewRouteRequest{
		Origin:      airport("TEB", 40.8501, -74.0608),
		Destination: airport("TEB", 40.8501, -74.0608),
	})
	require.NoError(t, err)
	assert.Equal(t, degenerateBefore+1, testutil.ToFloat64(degenerate))
	assert.Equal(t, curvedBefore, testutil.ToFloat64(curved))
	require.Len(t, route.Points, 33)
	for _, p := range route.Points {
		assert.Equal(t, route.Origin.Point, p)
	}
	assert.Equal(t, 0.0, route.DistanceKm)
	assert.Equal(t, 20, route.EstimatedDurationMin)
}

func TestItineraryFeatureCollection(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
	require.NoError(t, err)

	fc, err := svc.ItineraryFeatureCollection(ctx, created.ID, PathRequest{Steps: intPtr(16)})
	require.NoError(t, err)
	assert.Equal(t, created.Reference, fc.ExtraMembers["reference"])

	var lines, points []string
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			assert.Len(t, g, 17)
			lines = append(lines, f.Properties.MustString("origin"))
		case orb.Point:
			points = append(points, f.Properties.MustString("code"))
		}
	}
	assert.Equal(t, []string{"TEB", "PBI"}, lines)
	sort.Strings(points)
	assert.Equal(t, []string{"PBI", "TEB"}, points)
}

func TestListItineraries(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RegisterItinerary(ctx, tebToPbiRequest())
		require.NoError(t, err)
	}

	page, total, err := svc.ListItineraries(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
}
