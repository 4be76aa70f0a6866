package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/routelink-api/internal/middleware"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
	"github.com/noah-isme/routelink-api/pkg/response"
)

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Auth     *AuthHandler
	Routes   *RouteHandler
	Links    *LinkHandler
	Calendar *CalendarHandler
}

// Register mounts the API on group. Everything except register and login
// requires a bearer token validated by tokens.
func Register(group *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	auth := group.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	secured := group.Group("")
	secured.Use(middleware.JWT(tokens), middleware.WithResponseMeta())
	secured.GET("/auth/me", h.Auth.Me)

	secured.POST("/routes", h.Routes.Create)
	secured.GET("/routes", h.Routes.List)
	secured.GET("/routes/:id", h.Routes.Get)

	secured.POST("/links", h.Links.Create)
	secured.GET("/links", h.Links.List)
	secured.GET("/links/:id", h.Links.Get)

	calendar := secured.Group("/calendar")
	calendar.POST("/assignments", h.Calendar.Assign)
	calendar.GET("/summary", h.Calendar.Summary)
	calendar.GET("/months/:year/:month", h.Calendar.Month)
	calendar.GET("/holidays/:year", h.Calendar.Holidays)
	calendar.POST("/:date/routes", h.Calendar.CreateRoute)
	calendar.GET("/:date/routes", h.Calendar.Routes)
	calendar.POST("/:date/routes/:routeId/links", h.Calendar.AttachLink)
	calendar.GET("/:date/trips", h.Calendar.Trips)
	calendar.GET("/:date/export", h.Calendar.Export)
}

// NotFound answers unmatched paths with the standard error envelope.
func NotFound(c *gin.Context) {
	response.Error(c, appErrors.Clone(appErrors.ErrNotFound, ""))
}
