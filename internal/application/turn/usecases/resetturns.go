package usecases

import (
	"context"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

type ResetTurnsCommand struct{}

type ResetTurnsResult struct {
	Next *dto.TurnDTO `json:"next"`
}

type ResetTurnsUseCase struct {
	allocator *TurnAllocator
	logger    logger.Interface
}

func NewResetTurnsUseCase(allocator *TurnAllocator, logger logger.Interface) *ResetTurnsUseCase {
	return &ResetTurnsUseCase{allocator: allocator, logger: logger}
}

// Execute deletes every turn and issues turn number 1.
func (uc *ResetTurnsUseCase) Execute(ctx context.Context, _ ResetTurnsCommand) (*ResetTurnsResult, error) {
	uc.logger.Infow("executing reset turns use case")

	next, err := uc.allocator.Reset(ctx)
	if err != nil {
		uc.logger.Errorw("failed to reset turns", "error", err)
		return nil, err
	}
	return &ResetTurnsResult{Next: dto.ToTurnDTO(next)}, nil
}
