package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/domain/shared/events"
	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
	"github.com/taketurn/taketurn/internal/shared/logger"
	"github.com/taketurn/taketurn/internal/shared/utils"
)

type ReserveTurnCommand struct {
	TurnID string `field:"turn_id" validate:"required"`
}

type ReserveTurnResult struct {
	Turn *dto.TurnDTO `json:"turn"`
	// Next is the available turn after the reservation.
	Next *dto.TurnDTO `json:"next"`
}

type ReserveTurnUseCase struct {
	repo      turn.Repository
	allocator *TurnAllocator
	events    events.EventPublisher
	metrics   MetricsRecorder
	timeout   time.Duration
	logger    logger.Interface
}

func NewReserveTurnUseCase(
	repo turn.Repository,
	allocator *TurnAllocator,
	publisher events.EventPublisher,
	metrics MetricsRecorder,
	logger logger.Interface,
) *ReserveTurnUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ReserveTurnUseCase{
		repo:      repo,
		allocator: allocator,
		events:    publisher,
		metrics:   metrics,
		timeout:   allocator.timeout,
		logger:    logger,
	}
}

func (uc *ReserveTurnUseCase) Execute(ctx context.Context, cmd ReserveTurnCommand) (result *ReserveTurnResult, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, "reserve_turn", start, err) }()

	uc.logger.Infow("executing reserve turn use case", "turn_id", cmd.TurnID)

	cmd.TurnID = strings.TrimSpace(cmd.TurnID)
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	id := cmd.TurnID

	existing, err := callStore(ctx, uc.timeout, func(ctx context.Context) (*turn.Turn, error) {
		return uc.repo.FindByID(ctx, id)
	})
	if err != nil {
		uc.logger.Errorw("failed to find turn", "turn_id", id, "error", err)
		return nil, storageFault(err)
	}
	if existing == nil {
		uc.logger.Warnw("turn not found", "turn_id", id)
		return nil, notFound(id)
	}

	reserved := existing
	if existing.Status().CanTransitionTo(vo.StatusReserved) {
		reserved, err = callStore(ctx, uc.timeout, func(ctx context.Context) (*turn.Turn, error) {
			return uc.repo.UpdateStatus(ctx, id, vo.StatusReserved)
		})
		if err != nil {
			uc.logger.Errorw("failed to reserve turn", "turn_id", id, "error", err)
			return nil, mapStoreError(id, err)
		}
		if existing.IsAvailable() {
			uc.publish(turn.NewTurnReservedEvent(reserved))
		}
	} else {
		uc.logger.Infow("turn already assigned, reservation ignored",
			"turn_id", id,
			"holder", existing.Holder())
	}

	next, err := uc.allocator.Advance(ctx)
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("turn reserved",
		"turn_id", reserved.ID(),
		"status", reserved.Status().String(),
		"next_turn_id", next.ID())

	return &ReserveTurnResult{
		Turn: dto.ToTurnDTO(reserved),
		Next: dto.ToTurnDTO(next),
	}, nil
}

func (uc *ReserveTurnUseCase) publish(event events.DomainEvent) {
	if err := uc.events.Publish(event); err != nil {
		uc.logger.Warnw("failed to dispatch event", "event_type", event.GetEventType(), "error", err)
	}
}
