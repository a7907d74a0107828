package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAs(t *testing.T) {
	t.Run("Typed", func(t *testing.T) {
		wrapped := fmt.Errorf("lookup: %w", NotFound("User not found"))
		appErr := As(wrapped)

		assert.Equal(t, KindNotFound, appErr.Kind)
		assert.Equal(t, http.StatusNotFound, appErr.Status)
		assert.Equal(t, "User not found", appErr.Message)
	})

	t.Run("Untyped_IsInternal", func(t *testing.T) {
		cause := errors.New("connection reset by peer")
		appErr := As(cause)

		assert.Equal(t, KindInternal, appErr.Kind)
		assert.Equal(t, http.StatusInternalServerError, appErr.Status)
		assert.Equal(t, "Internal Server Error", appErr.Message)
		assert.ErrorIs(t, appErr, cause)
	})

	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, As(nil))
	})
}

func TestStatuses(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("bad").Status)
	assert.Equal(t, http.StatusForbidden, Conflict("dup").Status)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("no").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("no").Status)
	assert.True(t, Is(Conflict("dup"), KindConflict))
	assert.False(t, Is(Forbidden("no"), KindConflict))
}
