package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/internal/service"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
	"github.com/noah-isme/routelink-api/pkg/response"
)

type routeService interface {
	Create(ctx context.Context, req service.CreateRouteRequest) (*models.Route, error)
	Get(ctx context.Context, id int64) (*models.Route, error)
	List(ctx context.Context, req service.ListRequest) ([]models.Route, *models.Pagination, error)
}

// RouteHandler exposes the route catalog.
type RouteHandler struct {
	service routeService
}

// NewRouteHandler constructs the handler.
func NewRouteHandler(svc routeService) *RouteHandler {
	return &RouteHandler{service: svc}
}

// Create godoc
// @Summary Create route
// @Tags Routes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateRouteRequest true "Route payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /routes [post]
func (h *RouteHandler) Create(c *gin.Context) {
	var req service.CreateRouteRequest
	if err := bindJSON(c, &req, "invalid route payload"); err != nil {
		response.Error(c, err)
		return
	}

	route, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, route)
}

// List godoc
// @Summary List routes
// @Tags Routes
// @Produce json
// @Security BearerAuth
// @Param order query string false "newest (default) or oldest"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /routes [get]
func (h *RouteHandler) List(c *gin.Context) {
	var req service.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters", nil))
		return
	}

	routes, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, routes, pagination)
}

// Get godoc
// @Summary Get route
// @Tags Routes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Route ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /routes/{id} [get]
func (h *RouteHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	route, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, route, nil)
}
