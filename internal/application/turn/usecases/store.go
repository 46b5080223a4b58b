package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/taketurn/taketurn/internal/domain/turn"
	apperrors "github.com/taketurn/taketurn/internal/shared/errors"
)

// DefaultStoreTimeout bounds a single store call when none is configured.
const DefaultStoreTimeout = 5 * time.Second

// callStore runs fn with a deadline of timeout.
func callStore[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// storageFault wraps a store failure as a transient error for the caller.
func storageFault(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.GetAppError(err) != nil {
		return err
	}
	msg := "turn store unavailable"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "turn store timed out"
	}
	return apperrors.NewUnavailableError(msg).WithCause(err)
}

func notFound(id string) error {
	return apperrors.NewNotFoundError("turn not found", id).WithCause(turn.ErrTurnNotFound)
}

// mapStoreError translates the store contract errors.
func mapStoreError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, turn.ErrTurnNotFound):
		return notFound(id)
	case errors.Is(err, turn.ErrConflict):
		return apperrors.NewConflictError("turn changed concurrently").WithCause(err)
	default:
		return storageFault(err)
	}
}
