package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/domain/turn"
	"github.com/taketurn/taketurn/internal/domain/turn/turntest"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
)

func TestTurnRepository_Contract(t *testing.T) {
	turntest.RunRepositoryContract(t, func(t *testing.T) turn.Repository {
		return NewTurnRepository()
	})
}

func TestTurnRepository_ReturnsCopies(t *testing.T) {
	repo := NewTurnRepository()
	ctx := context.Background()

	created, err := repo.CreateAvailable(ctx, 1, "id-1")
	require.NoError(t, err)
	created.AssignTo("mallory")

	stored, err := repo.FindByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusAvailable, stored.Status())
	assert.Empty(t, stored.Holder())
}

func TestTurnRepository_CanceledContext(t *testing.T) {
	repo := NewTurnRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindAvailable(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = repo.CreateAvailable(ctx, 1, "id-1")
	assert.ErrorIs(t, err, context.Canceled)
}
