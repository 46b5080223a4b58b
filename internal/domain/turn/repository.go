package turn

import (
	"context"

	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
)

// Repository is the storage contract for turns. Lookups return (nil, nil)
// when nothing matches. Updates never move a status backward: a disallowed
// transition leaves the record as it is and returns it.
type Repository interface {
	FindAvailable(ctx context.Context) (*Turn, error)
	// CreateAvailable fails with ErrConflict when an available turn already
	// exists or the number or id is taken.
	CreateAvailable(ctx context.Context, number int64, id string) (*Turn, error)
	FindByID(ctx context.Context, id string) (*Turn, error)
	UpdateStatus(ctx context.Context, id string, status vo.TurnStatus) (*Turn, error)
	// UpdateHolderAndStatus reports applied=false when the stored turn was
	// left unchanged, for example because another caller assigned it first.
	UpdateHolderAndStatus(ctx context.Context, id, holder string, status vo.TurnStatus) (*Turn, bool, error)
	// MaxNumber returns 0 for an empty store.
	MaxNumber(ctx context.Context) (int64, error)
	// ListAll orders turns by number, highest first.
	ListAll(ctx context.Context) ([]*Turn, error)
	Clear(ctx context.Context) error
}
