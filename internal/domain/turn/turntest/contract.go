// Package turntest holds the behaviour every turn.Repository must satisfy.
package turntest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
)

// RunRepositoryContract runs the store contract against fresh repositories
// produced by newRepo.
func RunRepositoryContract(t *testing.T, newRepo func(t *testing.T) turn.Repository) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		repo := newRepo(t)

		available, err := repo.FindAvailable(ctx)
		require.NoError(t, err)
		assert.Nil(t, available)

		max, err := repo.MaxNumber(ctx)
		require.NoError(t, err)
		assert.Zero(t, max)

		list, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		missing, err := repo.FindByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("create available", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.NewString()

		created, err := repo.CreateAvailable(ctx, 1, id)
		require.NoError(t, err)
		assert.Equal(t, id, created.ID())
		assert.Equal(t, int64(1), created.Number())
		assert.Equal(t, vo.StatusAvailable, created.Status())
		assert.Empty(t, created.Holder())

		found, err := repo.FindAvailable(ctx)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, id, found.ID())

		byID, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, int64(1), byID.Number())
	})

	t.Run("second available conflicts", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)

		_, err = repo.CreateAvailable(ctx, 2, uuid.NewString())
		assert.ErrorIs(t, err, turn.ErrConflict)
	})

	t.Run("duplicate number conflicts", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, first.ID(), vo.StatusReserved)
		require.NoError(t, err)

		_, err = repo.CreateAvailable(ctx, 1, uuid.NewString())
		assert.ErrorIs(t, err, turn.ErrConflict)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.NewString()
		_, err := repo.CreateAvailable(ctx, 1, id)
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, id, vo.StatusReserved)
		require.NoError(t, err)

		_, err = repo.CreateAvailable(ctx, 2, id)
		assert.ErrorIs(t, err, turn.ErrConflict)
	})

	t.Run("reserve frees the available slot", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)

		reserved, err := repo.UpdateStatus(ctx, first.ID(), vo.StatusReserved)
		require.NoError(t, err)
		assert.Equal(t, vo.StatusReserved, reserved.Status())
		assert.Empty(t, reserved.Holder())

		available, err := repo.FindAvailable(ctx)
		require.NoError(t, err)
		assert.Nil(t, available)

		second, err := repo.CreateAvailable(ctx, 2, uuid.NewString())
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.Number())

		max, err := repo.MaxNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), max)
	})

	t.Run("status never moves backward", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)
		_, _, err = repo.UpdateHolderAndStatus(ctx, first.ID(), "alice", vo.StatusAssigned)
		require.NoError(t, err)

		got, err := repo.UpdateStatus(ctx, first.ID(), vo.StatusReserved)
		require.NoError(t, err)
		assert.Equal(t, vo.StatusAssigned, got.Status())

		got, err = repo.UpdateStatus(ctx, first.ID(), vo.StatusAvailable)
		require.NoError(t, err)
		assert.Equal(t, vo.StatusAssigned, got.Status())

		available, err := repo.FindAvailable(ctx)
		require.NoError(t, err)
		assert.Nil(t, available)
	})

	t.Run("first assignment wins", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)

		got, applied, err := repo.UpdateHolderAndStatus(ctx, first.ID(), "alice", vo.StatusAssigned)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "alice", got.Holder())
		assert.Equal(t, vo.StatusAssigned, got.Status())

		got, applied, err = repo.UpdateHolderAndStatus(ctx, first.ID(), "bob", vo.StatusAssigned)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, "alice", got.Holder())

		got, applied, err = repo.UpdateHolderAndStatus(ctx, first.ID(), "alice", vo.StatusAssigned)
		require.NoError(t, err)
		assert.False(t, applied, "a repeated assignment under the same name changes nothing")
		assert.Equal(t, "alice", got.Holder())
	})

	t.Run("assigning a reserved turn applies", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)
		_, err = repo.UpdateStatus(ctx, first.ID(), vo.StatusReserved)
		require.NoError(t, err)

		got, applied, err := repo.UpdateHolderAndStatus(ctx, first.ID(), "alice", vo.StatusAssigned)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, vo.StatusAssigned, got.Status())
	})

	t.Run("updates on unknown id", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.UpdateStatus(ctx, uuid.NewString(), vo.StatusReserved)
		assert.ErrorIs(t, err, turn.ErrTurnNotFound)

		_, applied, err := repo.UpdateHolderAndStatus(ctx, uuid.NewString(), "alice", vo.StatusAssigned)
		assert.ErrorIs(t, err, turn.ErrTurnNotFound)
		assert.False(t, applied)
	})

	t.Run("list is descending", func(t *testing.T) {
		repo := newRepo(t)
		for n := int64(1); n <= 3; n++ {
			created, err := repo.CreateAvailable(ctx, n, uuid.NewString())
			require.NoError(t, err)
			_, err = repo.UpdateStatus(ctx, created.ID(), vo.StatusReserved)
			require.NoError(t, err)
		}

		list, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []int64{3, 2, 1}, numbers(list))
	})

	t.Run("clear empties the store", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.CreateAvailable(ctx, 1, uuid.NewString())
		require.NoError(t, err)

		require.NoError(t, repo.Clear(ctx))

		max, err := repo.MaxNumber(ctx)
		require.NoError(t, err)
		assert.Zero(t, max)

		_, err = repo.CreateAvailable(ctx, 1, uuid.NewString())
		assert.NoError(t, err)
	})

	t.Run("concurrent creates leave one available", func(t *testing.T) {
		repo := newRepo(t)

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.CreateAvailable(ctx, 1, uuid.NewString())
			}(i)
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, turn.ErrConflict)
		}
		assert.Equal(t, 1, ok)

		list, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func numbers(list []*turn.Turn) []int64 {
	out := make([]int64, 0, len(list))
	for _, t := range list {
		out = append(out, t.Number())
	}
	return out
}
