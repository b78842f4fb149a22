package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrCodeBackendUnavailable, "search backend unavailable", http.StatusServiceUnavailable, cause)

	assert.Equal(t, "connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var ce *CustomError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &ce)
	assert.Equal(t, ErrCodeBackendUnavailable, ce.Code)
}

func TestValidationErrorDetection(t *testing.T) {
	err := NewValidationError("dish 0: missing name")
	assert.True(t, IsValidationError(err))
	assert.True(t, IsValidationError(fmt.Errorf("context: %w", err)))

	assert.False(t, IsValidationError(errors.New("plain")))
	assert.False(t, IsValidationError(ErrBackendUnavailable))
	assert.False(t, IsValidationError(nil))
}
