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

type linkService interface {
	Create(ctx context.Context, req service.CreateLinkRequest) (*models.Link, error)
	Get(ctx context.Context, id int64) (*models.Link, error)
	List(ctx context.Context, req service.ListRequest) ([]models.Link, *models.Pagination, error)
}

// LinkHandler exposes traveler records.
type LinkHandler struct {
	service linkService
}

// NewLinkHandler constructs the handler.
func NewLinkHandler(svc linkService) *LinkHandler {
	return &LinkHandler{service: svc}
}

// Create godoc
// @Summary Create link
// @Tags Links
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateLinkRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /links [post]
func (h *LinkHandler) Create(c *gin.Context) {
	var req service.CreateLinkRequest
	if err := bindJSON(c, &req, "invalid link payload"); err != nil {
		response.Error(c, err)
		return
	}

	link, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, link)
}

// List godoc
// @Summary List links
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Param order query string false "newest (default) or oldest"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /links [get]
func (h *LinkHandler) List(c *gin.Context) {
	var req service.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters", nil))
		return
	}

	links, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, links, pagination)
}

// Get godoc
// @Summary Get link
// @Tags Links
// @Produce json
// @Security BearerAuth
// @Param id path int true "Link ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /links/{id} [get]
func (h *LinkHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	link, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}
