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

type AssignTurnCommand struct {
	TurnID   string `field:"turn_id" validate:"required"`
	UserName string `field:"user_name" validate:"max=100"`
}

type AssignTurnResult struct {
	Turn *dto.TurnDTO `json:"turn"`
	// Assigned is false when the turn already had a holder and this call
	// changed nothing.
	Assigned bool `json:"assigned"`
}

// holderUpdate carries UpdateHolderAndStatus results through callStore.
type holderUpdate struct {
	turn    *turn.Turn
	applied bool
}

type AssignTurnUseCase struct {
	repo      turn.Repository
	allocator *TurnAllocator
	events    events.EventPublisher
	metrics   MetricsRecorder
	timeout   time.Duration
	logger    logger.Interface
}

func NewAssignTurnUseCase(
	repo turn.Repository,
	allocator *TurnAllocator,
	publisher events.EventPublisher,
	metrics MetricsRecorder,
	logger logger.Interface,
) *AssignTurnUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AssignTurnUseCase{
		repo:      repo,
		allocator: allocator,
		events:    publisher,
		metrics:   metrics,
		timeout:   allocator.timeout,
		logger:    logger,
	}
}

func (uc *AssignTurnUseCase) Execute(ctx context.Context, cmd AssignTurnCommand) (result *AssignTurnResult, err error) {
	start := time.Now()
	defer func() { observe(uc.metrics, "assign_turn", start, err) }()

	holder := turn.NormalizeHolder(cmd.UserName)
	uc.logger.Infow("executing assign turn use case",
		"turn_id", cmd.TurnID,
		"user_name", holder)

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

	if existing.Status().IsAssigned() {
		uc.logger.Infow("turn already assigned",
			"turn_id", id,
			"holder", existing.Holder())
		return &AssignTurnResult{Turn: dto.ToTurnDTO(existing)}, nil
	}

	update, err := callStore(ctx, uc.timeout, func(ctx context.Context) (holderUpdate, error) {
		t, applied, err := uc.repo.UpdateHolderAndStatus(ctx, id, holder, vo.StatusAssigned)
		return holderUpdate{turn: t, applied: applied}, err
	})
	if err != nil {
		uc.logger.Errorw("failed to assign turn", "turn_id", id, "error", err)
		return nil, mapStoreError(id, err)
	}
	assigned := update.turn

	// Another writer may have assigned the turn between the read and the
	// update. Only the call whose write landed announces the assignment.
	won := update.applied
	if won {
		uc.publish(turn.NewTurnAssignedEvent(assigned))
	}

	if existing.IsAvailable() {
		if _, err := uc.allocator.EnsureNext(ctx); err != nil {
			return nil, err
		}
	}

	uc.logger.Infow("turn assigned",
		"turn_id", assigned.ID(),
		"number", assigned.Number(),
		"holder", assigned.Holder())

	return &AssignTurnResult{
		Turn:     dto.ToTurnDTO(assigned),
		Assigned: won,
	}, nil
}

func (uc *AssignTurnUseCase) publish(event events.DomainEvent) {
	if err := uc.events.Publish(event); err != nil {
		uc.logger.Warnw("failed to dispatch event", "event_type", event.GetEventType(), "error", err)
	}
}
