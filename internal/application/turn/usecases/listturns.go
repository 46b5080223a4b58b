package usecases

import (
	"context"
	"time"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/domain/turn"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

type ListTurnsQuery struct{}

type ListTurnsResult struct {
	Turns []*dto.TurnDTO `json:"turns"`
	Total int            `json:"total"`
}

type ListTurnsUseCase struct {
	repo    turn.Repository
	metrics MetricsRecorder
	timeout time.Duration
	logger  logger.Interface
}

func NewListTurnsUseCase(repo turn.Repository, metrics MetricsRecorder, timeout time.Duration, logger logger.Interface) *ListTurnsUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ListTurnsUseCase{
		repo:    repo,
		metrics: metrics,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute returns every turn, highest number first.
func (uc *ListTurnsUseCase) Execute(ctx context.Context, _ ListTurnsQuery) (result *ListTurnsResult, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, "list_turns", start, err) }()

	turns, err := callStore(ctx, uc.timeout, uc.repo.ListAll)
	if err != nil {
		uc.logger.Errorw("failed to list turns", "error", err)
		return nil, storageFault(err)
	}

	return &ListTurnsResult{
		Turns: dto.ToTurnDTOs(turns),
		Total: len(turns),
	}, nil
}
