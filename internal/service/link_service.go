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

type linkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	FindByID(ctx context.Context, id int64) (*models.Link, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Link, int, error)
	Recent(ctx context.Context, limit int) ([]models.Link, error)
}

// CreateLinkRequest is the payload for a new traveler record.
type CreateLinkRequest struct {
	Name       string `json:"name" validate:"required"`
	DropPoint  string `json:"drop_point" validate:"required"`
	Phone      string `json:"phone" validate:"required,digits,min=7"`
	CourseYear string `json:"course_year" validate:"required"`
	Branch     string `json:"branch" validate:"required"`
}

func (r *CreateLinkRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.DropPoint = strings.TrimSpace(r.DropPoint)
	r.Phone = strings.TrimSpace(r.Phone)
	r.CourseYear = strings.TrimSpace(r.CourseYear)
	r.Branch = strings.TrimSpace(r.Branch)
}

// LinkService manages the link catalog.
type LinkService struct {
	repo      linkRepository
	validator *validator.Validate
	bus       *events.Bus
	logger    *zap.Logger
}

// NewLinkService constructs a LinkService.
func NewLinkService(repo linkRepository, validate *validator.Validate, bus *events.Bus, logger *zap.Logger) *LinkService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{repo: repo, validator: validate, bus: bus, logger: logger}
}

// Create validates and persists a link.
func (s *LinkService) Create(ctx context.Context, req CreateLinkRequest) (*models.Link, error) {
	req.normalize()
	if err := s.validator.Struct(req); err != nil {
		fields := validation.Fields(err)
		return nil, appErrors.Validation(err, "invalid link: "+validation.Summary(fields), fields)
	}

	link := &models.Link{
		Name:       req.Name,
		DropPoint:  req.DropPoint,
		Phone:      req.Phone,
		CourseYear: req.CourseYear,
		Branch:     req.Branch,
	}
	if err := s.repo.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create link")
	}

	s.bus.Publish(ctx, events.TopicLinkCreated, *link)
	s.logger.Info("link created", zap.Int64("link_id", link.ID))
	return link, nil
}

// Get returns a link by id.
func (s *LinkService) Get(ctx context.Context, id int64) (*models.Link, error) {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrLinkNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load link")
	}
	return link, nil
}

// List returns one page of links.
func (s *LinkService) List(ctx context.Context, req ListRequest) ([]models.Link, *models.Pagination, error) {
	filter := req.filter()
	links, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list links")
	}
	return links, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Each walks every link in the requested order, one page at a time.
func (s *LinkService) Each(ctx context.Context, order string, fn func(models.Link) error) error {
	req := ListRequest{Order: order, Page: 1, PageSize: catalogPageSize}
	for {
		links, page, err := s.List(ctx, req)
		if err != nil {
			return err
		}
		for _, link := range links {
			if err := fn(link); err != nil {
				return err
			}
		}
		if len(links) == 0 || page.Page*page.PageSize >= page.TotalCount {
			return nil
		}
		req.Page++
	}
}

// Recent returns the newest links.
func (s *LinkService) Recent(ctx context.Context, limit int) ([]models.Link, error) {
	links, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent links")
	}
	return links, nil
}
