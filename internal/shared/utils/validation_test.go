package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/shared/errors"
)

type sampleCommand struct {
	TurnID   string `field:"turn_id" validate:"required"`
	UserName string `field:"user_name" validate:"max=5"`
	Count    int    `validate:"gt=0"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(sampleCommand{TurnID: "t-1", UserName: "ana", Count: 1}))
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(sampleCommand{Count: 1})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.Contains(t, err.Error(), "turn_id is required")
	})

	t.Run("every failing field is reported", func(t *testing.T) {
		err := ValidateStruct(sampleCommand{UserName: "too long name"})
		require.Error(t, err)

		appErr, ok := err.(*errors.AppError)
		require.True(t, ok)
		assert.Contains(t, appErr.Details, "turn_id is required")
		assert.Contains(t, appErr.Details, "user_name must be at most 5 characters long")
		assert.Contains(t, appErr.Details, "Count must be greater than 0")
	})
}
