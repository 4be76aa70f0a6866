package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/pkg/events"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

type calendarRepository interface {
	FindOrCreate(ctx context.Context, a *models.Assignment) (bool, error)
	ListTrips(ctx context.Context, date models.Date) ([]models.Trip, error)
	RoutesOn(ctx context.Context, date models.Date) ([]models.Route, error)
	CountByRange(ctx context.Context, from, to models.Date) ([]models.DayCount, error)
}

type routeCatalog interface {
	Create(ctx context.Context, req CreateRouteRequest) (*models.Route, error)
	Get(ctx context.Context, id int64) (*models.Route, error)
	Recent(ctx context.Context, limit int) ([]models.Route, error)
}

type linkCatalog interface {
	Create(ctx context.Context, req CreateLinkRequest) (*models.Link, error)
	Get(ctx context.Context, id int64) (*models.Link, error)
	Recent(ctx context.Context, limit int) ([]models.Link, error)
}

type holidaySource interface {
	ForYear(year int) []models.Holiday
	Lookup(year int) map[string]string
}

// AssignRequest links a route, and optionally a link, to a travel date.
type AssignRequest struct {
	Date    string `json:"date"`
	RouteID int64  `json:"route_id"`
	LinkID  *int64 `json:"link_id"`
}

// SchedulerConfig tunes the calendar read paths.
type SchedulerConfig struct {
	CacheTTL     time.Duration
	SummaryLimit int
}

// SchedulerService joins dates, routes and links.
type SchedulerService struct {
	calendar calendarRepository
	routes   routeCatalog
	links    linkCatalog
	holidays holidaySource
	cache    *CacheService
	metrics  *MetricsService
	bus      *events.Bus
	logger   *zap.Logger
	cfg      SchedulerConfig
}

// SchedulerServiceParams groups constructor dependencies.
type SchedulerServiceParams struct {
	Calendar calendarRepository
	Routes   routeCatalog
	Links    linkCatalog
	Holidays holidaySource
	Cache    *CacheService
	Metrics  *MetricsService
	Bus      *events.Bus
	Logger   *zap.Logger
	Config   SchedulerConfig
}

// NewSchedulerService constructs a SchedulerService.
func NewSchedulerService(params SchedulerServiceParams) *SchedulerService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.SummaryLimit <= 0 {
		cfg.SummaryLimit = 10
	}
	return &SchedulerService{
		calendar: params.Calendar,
		routes:   params.Routes,
		links:    params.Links,
		holidays: params.Holidays,
		cache:    params.Cache,
		metrics:  params.Metrics,
		bus:      params.Bus,
		logger:   logger,
		cfg:      cfg,
	}
}

// Assign records that a route, with an optional link, runs on a date. Assigning an
// existing (date, route, link) triple returns the stored identifier.
func (s *SchedulerService) Assign(ctx context.Context, req AssignRequest) (*models.AssignmentResult, error) {
	date, err := parseTravelDate(req.Date)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, date, req.RouteID, req.LinkID)
}

func (s *SchedulerService) assign(ctx context.Context, date models.Date, routeID int64, linkID *int64) (*models.AssignmentResult, error) {
	if _, err := s.routes.Get(ctx, routeID); err != nil {
		return nil, err
	}
	if linkID != nil {
		if _, err := s.links.Get(ctx, *linkID); err != nil {
			return nil, err
		}
	}

	assignment := &models.Assignment{TravelDate: date, RouteID: routeID, LinkID: linkID}
	start := time.Now()
	created, err := s.calendar.FindOrCreate(ctx, assignment)
	s.metrics.ObserveDBQuery("calendar.find_or_create", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assignment")
	}

	s.metrics.RecordAssign(created)
	if created {
		s.bus.Publish(ctx, events.TopicAssignmentCreated, *assignment)
		s.logger.Info("assignment created",
			zap.Int64("assignment_id", assignment.ID),
			zap.String("travel_date", date.String()),
			zap.Int64("route_id", routeID),
		)
	}

	return &models.AssignmentResult{AssignmentID: assignment.ID, Created: created}, nil
}

// CreateRouteForDate creates a route and schedules it on date with no link.
// If scheduling fails the route is kept and the error names it.
func (s *SchedulerService) CreateRouteForDate(ctx context.Context, rawDate string, req CreateRouteRequest) (*models.ScheduledRoute, error) {
	date, err := parseTravelDate(rawDate)
	if err != nil {
		return nil, err
	}

	route, err := s.routes.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.assign(ctx, date, route.ID, nil)
	if err != nil {
		s.logger.Warn("route created but not scheduled", zap.Int64("route_id", route.ID), zap.String("travel_date", date.String()), zap.Error(err))
		return nil, partialFailure(err, fmt.Sprintf("route %d was saved but could not be scheduled", route.ID))
	}

	return &models.ScheduledRoute{Route: *route, AssignmentID: result.AssignmentID}, nil
}

// AttachLinkToRoute creates a link and assigns it to routeID on date.
// A link whose assignment fails is kept and the error names it.
func (s *SchedulerService) AttachLinkToRoute(ctx context.Context, rawDate string, routeID int64, req CreateLinkRequest) (*models.AttachedLink, error) {
	date, err := parseTravelDate(rawDate)
	if err != nil {
		return nil, err
	}

	link, err := s.links.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.assign(ctx, date, routeID, &link.ID)
	if err != nil {
		s.logger.Warn("link created but not attached", zap.Int64("link_id", link.ID), zap.Int64("route_id", routeID), zap.Error(err))
		return nil, partialFailure(err, fmt.Sprintf("link %d was saved but could not be attached", link.ID))
	}

	return &models.AttachedLink{Link: *link, AssignmentID: result.AssignmentID}, nil
}

// TripsOn resolves every assignment on date into its route and optional link.
// The boolean reports whether the result came from cache.
func (s *SchedulerService) TripsOn(ctx context.Context, rawDate string) ([]models.Trip, bool, error) {
	date, err := parseTravelDate(rawDate)
	if err != nil {
		return nil, false, err
	}

	key := fmt.Sprintf("calendar:trips:%s", date)
	var cached []models.Trip
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	trips, err := s.calendar.ListTrips(ctx, date)
	s.metrics.ObserveDBQuery("calendar.list_trips", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trips")
	}
	s.cache.Set(ctx, key, trips, s.cfg.CacheTTL)
	return trips, false, nil
}

// RoutesOn lists the distinct routes scheduled on date.
func (s *SchedulerService) RoutesOn(ctx context.Context, rawDate string) ([]models.Route, error) {
	date, err := parseTravelDate(rawDate)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	routes, err := s.calendar.RoutesOn(ctx, date)
	s.metrics.ObserveDBQuery("calendar.routes_on", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled routes")
	}
	return routes, nil
}

// RecentSummary returns the newest routes and links. limit <= 0 uses the configured default.
func (s *SchedulerService) RecentSummary(ctx context.Context, limit int) (*models.RecentSummary, error) {
	if limit <= 0 {
		limit = s.cfg.SummaryLimit
	}
	routes, err := s.routes.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	links, err := s.links.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &models.RecentSummary{Routes: routes, Links: links}, nil
}

// MonthOverview builds the month grid with assignment counts and holidays.
func (s *SchedulerService) MonthOverview(ctx context.Context, year, month int) (*models.MonthOverview, bool, error) {
	if err := validateYear(year); err != nil {
		return nil, false, err
	}
	if month < 1 || month > 12 {
		return nil, false, appErrors.Validation(nil, "month must be between 1 and 12", map[string]string{"month": "must be between 1 and 12"})
	}

	key := fmt.Sprintf("calendar:month:%04d-%02d", year, month)
	var cached models.MonthOverview
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	first := models.NewDate(year, time.Month(month), 1)
	last := models.NewDate(year, time.Month(month)+1, 0)
	start := time.Now()
	counts, err := s.calendar.CountByRange(ctx, first, last)
	s.metrics.ObserveDBQuery("calendar.count_by_range", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	byDate := make(map[string]int, len(counts))
	for _, c := range counts {
		byDate[c.TravelDate.String()] = c.Count
	}

	var holidays map[string]string
	if s.holidays != nil {
		holidays = s.holidays.Lookup(year)
	}

	overview := &models.MonthOverview{Year: year, Month: month, Days: make([]models.DayOverview, 0, last.Day())}
	for day := 1; day <= last.Day(); day++ {
		d := models.NewDate(year, time.Month(month), day)
		name, holiday := holidays[d.String()]
		overview.Days = append(overview.Days, models.DayOverview{
			Date:        d,
			Assignments: byDate[d.String()],
			Holiday:     holiday,
			HolidayName: name,
		})
	}

	s.cache.Set(ctx, key, overview, s.cfg.CacheTTL)
	return overview, false, nil
}

// Holidays lists the holidays of year.
func (s *SchedulerService) Holidays(year int) ([]models.Holiday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	if s.holidays == nil {
		return []models.Holiday{}, nil
	}
	return s.holidays.ForYear(year), nil
}

func parseTravelDate(raw string) (models.Date, error) {
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Validation(err, "date must be YYYY-MM-DD", map[string]string{"date": "must be YYYY-MM-DD"})
	}
	return date, nil
}

func validateYear(year int) error {
	if year < 1 || year > 9999 {
		return appErrors.Validation(nil, "year must be between 1 and 9999", map[string]string{"year": "must be between 1 and 9999"})
	}
	return nil
}

// partialFailure keeps the code and status of err while naming the record that was committed.
func partialFailure(err error, message string) error {
	appErr := appErrors.FromError(err)
	return appErrors.Wrap(err, appErr.Code, appErr.Status, fmt.Sprintf("%s: %s", message, appErr.Message))
}
