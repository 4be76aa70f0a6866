package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("disk full"))
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrRouteNotFound, "route 7 not found")
	wrapped := fmt.Errorf("assign: %w", cloned)

	assert.True(t, errors.Is(wrapped, ErrRouteNotFound))
	assert.False(t, errors.Is(wrapped, ErrLinkNotFound))
	assert.Equal(t, "route 7 not found", FromError(wrapped).Message)
	assert.Equal(t, "route not found", ErrRouteNotFound.Message)
}

func TestValidationCarriesCause(t *testing.T) {
	cause := errors.New("phone must be digits")
	err := Validation(cause, "", map[string]string{"phone": "must contain digits only"})
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "must contain digits only", err.Details["phone"])
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "validation failed: phone must be digits", err.Error())
}
