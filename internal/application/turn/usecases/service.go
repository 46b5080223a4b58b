package usecases

import (
	"context"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/application/turn/fanout"
	"github.com/taketurn/taketurn/internal/domain/shared/events"
	"github.com/taketurn/taketurn/internal/domain/turn"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// TurnService is the surface transports talk to.
type TurnService struct {
	allocator *TurnAllocator
	notifier  *fanout.Notifier

	next    GetNextTurnExecutor
	reserve ReserveTurnExecutor
	assign  AssignTurnExecutor
	list    ListTurnsExecutor
	reset   ResetTurnsExecutor
}

// NewTurnService wires the allocator and every turn use case around repo.
func NewTurnService(
	repo turn.Repository,
	ids turn.IDGenerator,
	notifier *fanout.Notifier,
	publisher events.EventPublisher,
	log logger.Interface,
	opts ...AllocatorOption,
) *TurnService {
	allocator := NewTurnAllocator(repo, ids, notifier, publisher, log, opts...)
	return &TurnService{
		allocator: allocator,
		notifier:  notifier,
		next:      NewGetNextTurnUseCase(allocator, log),
		reserve:   NewReserveTurnUseCase(repo, allocator, publisher, allocator.metrics, log),
		assign:    NewAssignTurnUseCase(repo, allocator, publisher, allocator.metrics, log),
		list:      NewListTurnsUseCase(repo, allocator.metrics, allocator.timeout, log),
		reset:     NewResetTurnsUseCase(allocator, log),
	}
}

func (s *TurnService) Allocator() *TurnAllocator {
	return s.allocator
}

func (s *TurnService) AllocateOrGetNext(ctx context.Context) (*dto.TurnDTO, error) {
	return s.next.Execute(ctx, GetNextTurnQuery{})
}

func (s *TurnService) Reserve(ctx context.Context, id string) (*ReserveTurnResult, error) {
	return s.reserve.Execute(ctx, ReserveTurnCommand{TurnID: id})
}

func (s *TurnService) Assign(ctx context.Context, id, userName string) (*AssignTurnResult, error) {
	return s.assign.Execute(ctx, AssignTurnCommand{TurnID: id, UserName: userName})
}

func (s *TurnService) ListAll(ctx context.Context) (*ListTurnsResult, error) {
	return s.list.Execute(ctx, ListTurnsQuery{})
}

func (s *TurnService) Reset(ctx context.Context) (*ResetTurnsResult, error) {
	return s.reset.Execute(ctx, ResetTurnsCommand{})
}

// Current returns the cached available turn without reading the store.
func (s *TurnService) Current() (dto.TurnReference, bool) {
	return s.notifier.Current()
}

// Subscribe registers l for turn changes. l receives the current turn
// immediately when one exists.
func (s *TurnService) Subscribe(l fanout.Listener) fanout.Handle {
	return s.notifier.Subscribe(l)
}

func (s *TurnService) Unsubscribe(h fanout.Handle) {
	s.notifier.Unsubscribe(h)
}
