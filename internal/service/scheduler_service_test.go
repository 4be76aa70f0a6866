package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/pkg/events"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

type memCalendarRepo struct {
	assignments []models.Assignment
	routes      *memRouteRepo
	links       *memLinkRepo
	storeErr    error
	listCalls   int
}

func tripleKey(a models.Assignment) string {
	var link int64
	if a.LinkID != nil {
		link = *a.LinkID
	}
	return fmt.Sprintf("%s/%d/%d", a.TravelDate, a.RouteID, link)
}

func (m *memCalendarRepo) FindOrCreate(ctx context.Context, a *models.Assignment) (bool, error) {
	if m.storeErr != nil {
		return false, m.storeErr
	}
	for _, existing := range m.assignments {
		if tripleKey(existing) == tripleKey(*a) {
			a.ID = existing.ID
			return false, nil
		}
	}
	a.ID = int64(len(m.assignments) + 1)
	m.assignments = append(m.assignments, *a)
	return true, nil
}

func (m *memCalendarRepo) ListTrips(ctx context.Context, date models.Date) ([]models.Trip, error) {
	m.listCalls++
	trips := []models.Trip{}
	for _, a := range m.assignments {
		if a.TravelDate.String() != date.String() {
			continue
		}
		route, _ := m.routes.FindByID(ctx, a.RouteID)
		trip := models.Trip{AssignmentID: a.ID, TravelDate: a.TravelDate, Route: *route}
		if a.LinkID != nil {
			trip.Link, _ = m.links.FindByID(ctx, *a.LinkID)
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func (m *memCalendarRepo) RoutesOn(ctx context.Context, date models.Date) ([]models.Route, error) {
	seen := map[int64]bool{}
	routes := []models.Route{}
	for i := len(m.assignments) - 1; i >= 0; i-- {
		a := m.assignments[i]
		if a.TravelDate.String() != date.String() || seen[a.RouteID] {
			continue
		}
		seen[a.RouteID] = true
		route, _ := m.routes.FindByID(ctx, a.RouteID)
		routes = append(routes, *route)
	}
	return routes, nil
}

func (m *memCalendarRepo) CountByRange(ctx context.Context, from, to models.Date) ([]models.DayCount, error) {
	counts := map[string]int{}
	var order []string
	for _, a := range m.assignments {
		if a.TravelDate.Before(from.Time) || a.TravelDate.After(to.Time) {
			continue
		}
		key := a.TravelDate.String()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	out := make([]models.DayCount, 0, len(order))
	for _, key := range order {
		d, _ := models.ParseDate(key)
		out = append(out, models.DayCount{TravelDate: d, Count: counts[key]})
	}
	return out, nil
}

type memCacheRepo struct {
	values map[string][]byte
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.values, key)
		}
	}
	return nil
}

type schedulerFixture struct {
	svc      *SchedulerService
	routes   *RouteService
	links    *LinkService
	calendar *memCalendarRepo
	cache    *memCacheRepo
	bus      *events.Bus
	metrics  *MetricsService
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	routeRepo := &memRouteRepo{}
	linkRepo := &memLinkRepo{}
	calendar := &memCalendarRepo{routes: routeRepo, links: linkRepo}
	cacheRepo := &memCacheRepo{values: map[string][]byte{}}
	bus := events.NewBus(nil)
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	cache.SubscribeInvalidation(bus)

	routes := NewRouteService(routeRepo, nil, bus, nil)
	links := NewLinkService(linkRepo, nil, bus, nil)
	svc := NewSchedulerService(SchedulerServiceParams{
		Calendar: calendar,
		Routes:   routes,
		Links:    links,
		Holidays: NewHolidayService(42),
		Cache:    cache,
		Metrics:  metrics,
		Bus:      bus,
		Config:   SchedulerConfig{CacheTTL: time.Minute, SummaryLimit: 2},
	})
	return &schedulerFixture{svc: svc, routes: routes, links: links, calendar: calendar, cache: cacheRepo, bus: bus, metrics: metrics}
}

func int64Ptr(v int64) *int64 { return &v }

func TestSchedulerScenario(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	route, err := f.routes.Create(ctx, sampleRoute())
	require.NoError(t, err)
	require.Equal(t, int64(1), route.ID)

	res, err := f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.AssignmentID)
	assert.True(t, res.Created)

	trips, hit, err := f.svc.TripsOn(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, trips, 1)
	assert.Equal(t, int64(1), trips[0].Route.ID)
	assert.Nil(t, trips[0].Link)

	link, err := f.links.Create(ctx, sampleLink())
	require.NoError(t, err)
	require.Equal(t, int64(1), link.ID)

	res, err = f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1, LinkID: int64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.AssignmentID)

	trips, hit, err = f.svc.TripsOn(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.False(t, hit, "assignment events must invalidate cached trips")
	require.Len(t, trips, 2)
	assert.Nil(t, trips[0].Link)
	require.NotNil(t, trips[1].Link)
	assert.Equal(t, "Asha", trips[1].Link.Name)

	_, hit, err = f.svc.TripsOn(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestSchedulerAssignIdempotent(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	_, err := f.routes.Create(ctx, sampleRoute())
	require.NoError(t, err)
	_, err = f.links.Create(ctx, sampleLink())
	require.NoError(t, err)

	first, err := f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1, LinkID: int64Ptr(1)})
	require.NoError(t, err)
	second, err := f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1, LinkID: int64Ptr(1)})
	require.NoError(t, err)

	assert.Equal(t, first.AssignmentID, second.AssignmentID)
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Len(t, f.calendar.assignments, 1)
}

func TestSchedulerAssignErrors(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := f.svc.Assign(ctx, AssignRequest{Date: "10-03-2025", RouteID: 1})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Assign(ctx, AssignRequest{Date: "2025-02-30", RouteID: 1})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1})
	assert.True(t, errors.Is(err, appErrors.ErrRouteNotFound))

	_, err = f.routes.Create(ctx, sampleRoute())
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1, LinkID: int64Ptr(5)})
	assert.True(t, errors.Is(err, appErrors.ErrLinkNotFound))

	assert.Empty(t, f.calendar.assignments)
}

func TestSchedulerAssignStoreFailure(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	_, err := f.routes.Create(ctx, sampleRoute())
	require.NoError(t, err)
	f.calendar.storeErr = errors.New("disk I/O error")

	_, err = f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestSchedulerCreateRouteForDate(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	scheduled, err := f.svc.CreateRouteForDate(ctx, "2025-03-10", sampleRoute())
	require.NoError(t, err)
	assert.Equal(t, int64(1), scheduled.Route.ID)
	assert.Equal(t, int64(1), scheduled.AssignmentID)
	require.Len(t, f.calendar.assignments, 1)
	assert.Nil(t, f.calendar.assignments[0].LinkID)

	_, err = f.svc.CreateRouteForDate(ctx, "not-a-date", sampleRoute())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, err = f.routes.Get(ctx, 2)
	assert.True(t, errors.Is(err, appErrors.ErrRouteNotFound), "no route is created for an invalid date")
}

func TestSchedulerCreateRouteForDateKeepsRouteOnFailure(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	f.calendar.storeErr = errors.New("disk I/O error")

	_, err := f.svc.CreateRouteForDate(ctx, "2025-03-10", sampleRoute())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "route 1 was saved")

	_, err = f.routes.Get(ctx, 1)
	assert.NoError(t, err)
}

func TestSchedulerAttachLinkToRoute(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	scheduled, err := f.svc.CreateRouteForDate(ctx, "2025-03-10", sampleRoute())
	require.NoError(t, err)

	attached, err := f.svc.AttachLinkToRoute(ctx, "2025-03-10", scheduled.Route.ID, sampleLink())
	require.NoError(t, err)
	assert.Equal(t, int64(1), attached.Link.ID)
	assert.Equal(t, int64(2), attached.AssignmentID)

	routes, err := f.svc.RoutesOn(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, scheduled.Route.ID, routes[0].ID)
}

func TestSchedulerAttachLinkToMissingRouteKeepsLink(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := f.svc.AttachLinkToRoute(ctx, "2025-03-10", 42, sampleLink())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRouteNotFound))
	assert.Contains(t, appErrors.FromError(err).Message, "link 1 was saved")

	_, err = f.links.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, f.calendar.assignments)
}

func TestSchedulerTripsOnEmptyDate(t *testing.T) {
	f := newSchedulerFixture(t)
	trips, _, err := f.svc.TripsOn(context.Background(), "2030-01-01")
	require.NoError(t, err)
	assert.NotNil(t, trips)
	assert.Empty(t, trips)
}

func TestSchedulerRecentSummary(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.routes.Create(ctx, sampleRoute())
		require.NoError(t, err)
	}
	_, err := f.links.Create(ctx, sampleLink())
	require.NoError(t, err)

	summary, err := f.svc.RecentSummary(ctx, 0)
	require.NoError(t, err)
	require.Len(t, summary.Routes, 2)
	assert.Equal(t, int64(3), summary.Routes[0].ID)
	assert.Len(t, summary.Links, 1)

	summary, err = f.svc.RecentSummary(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, summary.Routes, 3)
}

func TestSchedulerMonthOverview(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateRouteForDate(ctx, "2025-01-10", sampleRoute())
	require.NoError(t, err)
	_, err = f.svc.AttachLinkToRoute(ctx, "2025-01-10", 1, sampleLink())
	require.NoError(t, err)

	overview, hit, err := f.svc.MonthOverview(ctx, 2025, 1)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, overview.Days, 31)
	assert.Equal(t, 2, overview.Days[9].Assignments)
	assert.True(t, overview.Days[25].Holiday)
	assert.Equal(t, "Republic Day", overview.Days[25].HolidayName)

	_, hit, err = f.svc.MonthOverview(ctx, 2025, 1)
	require.NoError(t, err)
	assert.True(t, hit)

	feb, _, err := f.svc.MonthOverview(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Len(t, feb.Days, 29)

	_, _, err = f.svc.MonthOverview(ctx, 2025, 13)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSchedulerHolidays(t *testing.T) {
	f := newSchedulerFixture(t)
	holidays, err := f.svc.Holidays(2025)
	require.NoError(t, err)
	assert.Len(t, holidays, 11)

	_, err = f.svc.Holidays(0)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// dbSamples returns the observation count of db_query_duration_seconds per query label.
func dbSamples(t *testing.T, m *MetricsService) map[string]uint64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	out := map[string]uint64{}
	for _, family := range families {
		if family.GetName() != "db_query_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "query" {
					out[label.GetValue()] = metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return out
}

func TestSchedulerObservesCalendarQueries(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := f.routes.Create(ctx, sampleRoute())
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, AssignRequest{Date: "2025-03-10", RouteID: 1})
	require.NoError(t, err)
	_, _, err = f.svc.TripsOn(ctx, "2025-03-10")
	require.NoError(t, err)
	// served from cache, no second query
	_, _, err = f.svc.TripsOn(ctx, "2025-03-10")
	require.NoError(t, err)
	_, err = f.svc.RoutesOn(ctx, "2025-03-10")
	require.NoError(t, err)
	_, _, err = f.svc.MonthOverview(ctx, 2025, 3)
	require.NoError(t, err)

	samples := dbSamples(t, f.metrics)
	assert.Equal(t, uint64(1), samples["calendar.find_or_create"])
	assert.Equal(t, uint64(1), samples["calendar.list_trips"])
	assert.Equal(t, uint64(1), samples["calendar.routes_on"])
	assert.Equal(t, uint64(1), samples["calendar.count_by_range"])
}
