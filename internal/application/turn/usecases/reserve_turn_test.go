package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
	apperrors "github.com/taketurn/taketurn/internal/shared/errors"
)

func TestReserveTurnUseCase_Execute_AvailableTurn(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.AllocateOrGetNext(ctx)
	require.NoError(t, err)

	listener := &collectingListener{}
	f.service.Subscribe(listener)

	result, err := f.service.Reserve(ctx, first.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, result.Turn.ID)
	assert.Equal(t, vo.StatusReserved.String(), result.Turn.Status)
	assert.Empty(t, result.Turn.Holder)
	assert.Equal(t, int64(2), result.Next.Number)

	ref, ok := f.service.Current()
	require.True(t, ok)
	assert.Equal(t, result.Next.ID, ref.NextAvailableTurn)

	got := listener.received()
	require.NotEmpty(t, got)
	assert.Equal(t, result.Next.ID, got[len(got)-1].NextAvailableTurn)

	assert.Equal(t, []string{
		turn.EventTypeTurnCreated,
		turn.EventTypeTurnReserved,
		turn.EventTypeTurnCreated,
	}, f.publisher.types())
}

func TestReserveTurnUseCase_Execute_AlreadyReserved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.AllocateOrGetNext(ctx)
	require.NoError(t, err)
	_, err = f.service.Reserve(ctx, first.ID)
	require.NoError(t, err)

	listener := &collectingListener{}
	f.service.Subscribe(listener)

	result, err := f.service.Reserve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusReserved.String(), result.Turn.Status)
	assert.Equal(t, int64(2), result.Next.Number, "no extra turn is created")

	// One delivery on subscribe plus the unconditional broadcast.
	assert.Len(t, listener.received(), 2)
}

func TestReserveTurnUseCase_Execute_AssignedTurnUnchanged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.AllocateOrGetNext(ctx)
	require.NoError(t, err)
	_, err = f.service.Assign(ctx, first.ID, "Ana")
	require.NoError(t, err)

	var updates int
	f.repo.UpdateStatusFunc = func(ctx context.Context, id string, status vo.TurnStatus) (*turn.Turn, error) {
		updates++
		return f.repo.store.UpdateStatus(ctx, id, status)
	}

	result, err := f.service.Reserve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusAssigned.String(), result.Turn.Status)
	assert.Equal(t, "Ana", result.Turn.Holder)
	assert.Zero(t, updates)
}

func TestReserveTurnUseCase_Execute_NotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.AllocateOrGetNext(ctx)
	require.NoError(t, err)

	_, err = f.service.Reserve(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.True(t, errors.Is(err, turn.ErrTurnNotFound))

	all, err := f.repo.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "nothing is created for an unknown id")
	assert.Equal(t, []string{outcomeError}, f.metrics.get("reserve_turn"))
}

func TestReserveTurnUseCase_Execute_EmptyID(t *testing.T) {
	f := newFixture()

	_, err := f.service.Reserve(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestReserveTurnUseCase_Execute_UpdateNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.AllocateOrGetNext(ctx)
	require.NoError(t, err)

	f.repo.UpdateStatusFunc = func(context.Context, string, vo.TurnStatus) (*turn.Turn, error) {
		return nil, turn.ErrTurnNotFound
	}

	_, err = f.service.Reserve(ctx, first.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestReserveTurnUseCase_Execute_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(context.Context, string) (*turn.Turn, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.service.Reserve(context.Background(), "turn-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailableError(err))
}
