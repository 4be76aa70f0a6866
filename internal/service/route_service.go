package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/internal/validation"
	"github.com/noah-isme/routelink-api/pkg/events"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

// catalogPageSize is the page size used when walking a whole catalog.
const catalogPageSize = 100

type routeRepository interface {
	Create(ctx context.Context, route *models.Route) error
	FindByID(ctx context.Context, id int64) (*models.Route, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Route, int, error)
	Recent(ctx context.Context, limit int) ([]models.Route, error)
}

// CreateRouteRequest is the payload for a new route slot. Time is optional.
type CreateRouteRequest struct {
	SlotNo        string `json:"slot_no" validate:"required"`
	EndPoint      string `json:"end_point" validate:"required"`
	MajorStops    string `json:"major_stops" validate:"required"`
	Time          string `json:"time" validate:"omitempty,hhmm"`
	TransportType string `json:"transport_type" validate:"required"`
	NoOfPeople    int    `json:"no_of_people" validate:"gte=1"`
}

func (r *CreateRouteRequest) normalize() {
	r.SlotNo = strings.TrimSpace(r.SlotNo)
	r.EndPoint = strings.TrimSpace(r.EndPoint)
	r.MajorStops = strings.TrimSpace(r.MajorStops)
	r.Time = strings.TrimSpace(r.Time)
	r.TransportType = strings.TrimSpace(r.TransportType)
}

// ListRequest pages through a catalog.
type ListRequest struct {
	Order    string `form:"order"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

func (r ListRequest) filter() models.ListFilter {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = 20
	}
	if r.PageSize > 200 {
		r.PageSize = 200
	}
	order := strings.ToLower(strings.TrimSpace(r.Order))
	if order != models.OrderOldest {
		order = models.OrderNewest
	}
	return models.ListFilter{Order: order, Page: r.Page, PageSize: r.PageSize}
}

// RouteService manages the route catalog.
type RouteService struct {
	repo      routeRepository
	validator *validator.Validate
	bus       *events.Bus
	logger    *zap.Logger
}

// NewRouteService constructs a RouteService.
func NewRouteService(repo routeRepository, validate *validator.Validate, bus *events.Bus, logger *zap.Logger) *RouteService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{repo: repo, validator: validate, bus: bus, logger: logger}
}

// Create validates and persists a route.
func (s *RouteService) Create(ctx context.Context, req CreateRouteRequest) (*models.Route, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		fields := validation.Fields(err)
		return nil, appErrors.Validation(err, "invalid route: "+validation.Summary(fields), fields)
	}

	route := &models.Route{
		SlotNo:        req.SlotNo,
		EndPoint:      req.EndPoint,
		MajorStops:    req.MajorStops,
		TransportType: req.TransportType,
		NoOfPeople:    req.NoOfPeople,
	}
	if req.Time != "" {
		t := req.Time
		route.Time = &t
	}

	if err := s.repo.Create(ctx, route); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create route")
	}

	s.bus.Publish(ctx, events.TopicRouteCreated, *route)
	s.logger.Info("route created", zap.Int64("route_id", route.ID), zap.String("slot_no", route.SlotNo))
	return route, nil
}

// Get returns a route by id.
func (s *RouteService) Get(ctx context.Context, id int64) (*models.Route, error) {
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRouteNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load route")
	}
	return route, nil
}

// List returns one page of routes.
func (s *RouteService) List(ctx context.Context, req ListRequest) ([]models.Route, *models.Pagination, error) {
	filter := req.filter()
	routes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routes")
	}
	return routes, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Each walks every route in the requested order, one page at a time.
// Returning an error from fn stops the walk and returns that error.
func (s *RouteService) Each(ctx context.Context, order string, fn func(models.Route) error) error {
	req := ListRequest{Order: order, Page: 1, PageSize: catalogPageSize}
	for {
		routes, page, err := s.List(ctx, req)
		if err != nil {
			return err
		}
		for _, route := range routes {
			if err := fn(route); err != nil {
				return err
			}
		}
		if len(routes) == 0 || page.Page*page.PageSize >= page.TotalCount {
			return nil
		}
		req.Page++
	}
}

// Recent returns the newest routes.
func (s *RouteService) Recent(ctx context.Context, limit int) ([]models.Route, error) {
	routes, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent routes")
	}
	return routes, nil
}
