package usecases

import (
	"context"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

type GetNextTurnQuery struct{}

type GetNextTurnUseCase struct {
	allocator *TurnAllocator
	logger    logger.Interface
}

func NewGetNextTurnUseCase(allocator *TurnAllocator, logger logger.Interface) *GetNextTurnUseCase {
	return &GetNextTurnUseCase{allocator: allocator, logger: logger}
}

// Execute returns the available turn, allocating one when there is none.
func (uc *GetNextTurnUseCase) Execute(ctx context.Context, _ GetNextTurnQuery) (*dto.TurnDTO, error) {
	next, err := uc.allocator.EnsureNext(ctx)
	if err != nil {
		uc.logger.Errorw("failed to get next turn", "error", err)
		return nil, err
	}
	return dto.ToTurnDTO(next), nil
}
