package usecases

import (
	"context"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
)

type ReserveTurnExecutor interface {
	Execute(ctx context.Context, cmd ReserveTurnCommand) (*ReserveTurnResult, error)
}

type AssignTurnExecutor interface {
	Execute(ctx context.Context, cmd AssignTurnCommand) (*AssignTurnResult, error)
}

type ListTurnsExecutor interface {
	Execute(ctx context.Context, query ListTurnsQuery) (*ListTurnsResult, error)
}

type GetNextTurnExecutor interface {
	Execute(ctx context.Context, query GetNextTurnQuery) (*dto.TurnDTO, error)
}

type ResetTurnsExecutor interface {
	Execute(ctx context.Context, cmd ResetTurnsCommand) (*ResetTurnsResult, error)
}
