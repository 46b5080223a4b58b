package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetTypeAndCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		typ  ErrorType
		code int
	}{
		{NewNotFoundError("turn not found"), ErrorTypeNotFound, http.StatusNotFound},
		{NewConflictError("turn already available"), ErrorTypeConflict, http.StatusConflict},
		{NewUnavailableError("store timed out"), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{NewValidationError("bad id"), ErrorTypeValidation, http.StatusBadRequest},
		{NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestErrorMessageIncludesDetails(t *testing.T) {
	assert.Equal(t, "not_found: turn not found", NewNotFoundError("turn not found").Error())
	assert.Equal(t, "not_found: turn not found (abc)", NewNotFoundError("turn not found", "abc").Error())
}

func TestWithCauseUnwraps(t *testing.T) {
	err := fmt.Errorf("allocate: %w", NewUnavailableError("store timed out").WithCause(context.DeadlineExceeded))

	assert.True(t, IsUnavailableError(err))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.False(t, IsNotFoundError(err))
	assert.Nil(t, GetAppError(stderrors.New("plain")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(stderrors.New("Error 1062 (23000): Duplicate entry '1' for key 'turns.idx_turns_available_slot'")))
	assert.True(t, IsDuplicateError(stderrors.New("UNIQUE constraint failed: turns.number")))
	assert.False(t, IsDuplicateError(stderrors.New("connection refused")))
	assert.False(t, IsDuplicateError(nil))
}
