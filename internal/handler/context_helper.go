package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/routelink-api/internal/middleware"
	"github.com/noah-isme/routelink-api/internal/models"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// bindJSON decodes the request body, reporting malformed JSON and wrongly
// typed fields as validation errors.
func bindJSON(c *gin.Context, dst interface{}, message string) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return appErrors.Validation(err, message, map[string]string{
			typeErr.Field: fmt.Sprintf("must be a %s", jsonKind(typeErr.Type.Kind().String())),
		})
	case errors.Is(err, io.EOF):
		return appErrors.Validation(err, message, map[string]string{"body": "is required"})
	default:
		return appErrors.Validation(err, message, nil)
	}
}

func jsonKind(kind string) string {
	switch {
	case strings.HasPrefix(kind, "int"), strings.HasPrefix(kind, "uint"):
		return "whole number"
	case strings.HasPrefix(kind, "float"):
		return "number"
	default:
		return kind
	}
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Validation(err, fmt.Sprintf("%s must be a positive integer", name), map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}

// pathInt parses an integer path parameter.
func pathInt(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, appErrors.Validation(err, fmt.Sprintf("%s must be a number", name), map[string]string{name: "must be a number"})
	}
	return n, nil
}
