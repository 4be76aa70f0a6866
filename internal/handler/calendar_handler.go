package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/routelink-api/internal/middleware"
	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/internal/service"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
	"github.com/noah-isme/routelink-api/pkg/response"
)

type schedulerService interface {
	Assign(ctx context.Context, req service.AssignRequest) (*models.AssignmentResult, error)
	CreateRouteForDate(ctx context.Context, date string, req service.CreateRouteRequest) (*models.ScheduledRoute, error)
	AttachLinkToRoute(ctx context.Context, date string, routeID int64, req service.CreateLinkRequest) (*models.AttachedLink, error)
	TripsOn(ctx context.Context, date string) ([]models.Trip, bool, error)
	RoutesOn(ctx context.Context, date string) ([]models.Route, error)
	RecentSummary(ctx context.Context, limit int) (*models.RecentSummary, error)
	MonthOverview(ctx context.Context, year, month int) (*models.MonthOverview, bool, error)
	Holidays(year int) ([]models.Holiday, error)
}

type rosterExporter interface {
	ExportTrips(ctx context.Context, date, format string) (*service.ExportResult, error)
}

// CalendarHandler exposes the scheduler.
type CalendarHandler struct {
	scheduler schedulerService
	exporter  rosterExporter
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(scheduler schedulerService, exporter rosterExporter) *CalendarHandler {
	return &CalendarHandler{scheduler: scheduler, exporter: exporter}
}

// Assign godoc
// @Summary Assign a route, and optionally a link, to a date
// @Description Re-assigning an existing (date, route, link) triple returns the stored assignment with created=false.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AssignRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendar/assignments [post]
func (h *CalendarHandler) Assign(c *gin.Context) {
	var req service.AssignRequest
	if err := bindJSON(c, &req, "invalid assignment payload"); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.scheduler.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, res, nil)
}

// CreateRoute godoc
// @Summary Create a route and schedule it on a date
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date path string true "Travel date (YYYY-MM-DD)"
// @Param payload body service.CreateRouteRequest true "Route payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/{date}/routes [post]
func (h *CalendarHandler) CreateRoute(c *gin.Context) {
	var req service.CreateRouteRequest
	if err := bindJSON(c, &req, "invalid route payload"); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.scheduler.CreateRouteForDate(c.Request.Context(), c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// AttachLink godoc
// @Summary Create a link and attach it to a scheduled route
// @Description The link is kept even when the route does not exist.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date path string true "Travel date (YYYY-MM-DD)"
// @Param routeId path int true "Route ID"
// @Param payload body service.CreateLinkRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendar/{date}/routes/{routeId}/links [post]
func (h *CalendarHandler) AttachLink(c *gin.Context) {
	routeID, err := pathID(c, "routeId")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.CreateLinkRequest
	if err := bindJSON(c, &req, "invalid link payload"); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.scheduler.AttachLinkToRoute(c.Request.Context(), c.Param("date"), routeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Trips godoc
// @Summary Trips on a date
// @Description Every assignment on the date with its route and, when attached, its link.
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param date path string true "Travel date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/{date}/trips [get]
func (h *CalendarHandler) Trips(c *gin.Context) {
	trips, hit, err := h.scheduler.TripsOn(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, trips, nil, middleware.ExtractMeta(c))
}

// Routes godoc
// @Summary Routes scheduled on a date
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param date path string true "Travel date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /calendar/{date}/routes [get]
func (h *CalendarHandler) Routes(c *gin.Context) {
	routes, err := h.scheduler.RoutesOn(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, routes, nil)
}

// Summary godoc
// @Summary Most recent routes and links
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Entries per list"
// @Success 200 {object} response.Envelope
// @Router /calendar/summary [get]
func (h *CalendarHandler) Summary(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, appErrors.Validation(err, "limit must be a positive integer", map[string]string{"limit": "must be a positive integer"}))
			return
		}
		limit = n
	}

	summary, err := h.scheduler.RecentSummary(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Month godoc
// @Summary Month overview
// @Description Assignment counts and holiday flags for every day of the month.
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Router /calendar/months/{year}/{month} [get]
func (h *CalendarHandler) Month(c *gin.Context) {
	year, err := pathInt(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := pathInt(c, "month")
	if err != nil {
		response.Error(c, err)
		return
	}

	overview, hit, err := h.scheduler.MonthOverview(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}

// Holidays godoc
// @Summary Holidays of a year
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param year path int true "Year"
// @Success 200 {object} response.Envelope
// @Router /calendar/holidays/{year} [get]
func (h *CalendarHandler) Holidays(c *gin.Context) {
	year, err := pathInt(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}

	holidays, err := h.scheduler.Holidays(year)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, holidays, nil)
}

// Export godoc
// @Summary Download the trip roster of a date
// @Tags Calendar
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param date path string true "Travel date (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /calendar/{date}/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exports are not configured"))
		return
	}

	res, err := h.exporter.ExportTrips(c.Request.Context(), c.Param("date"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, res.Name, res.ContentType, res.Data)
}
