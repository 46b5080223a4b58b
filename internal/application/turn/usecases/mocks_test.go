package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/application/turn/fanout"
	"github.com/taketurn/taketurn/internal/domain/shared/events"
	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
	"github.com/taketurn/taketurn/internal/infrastructure/memory"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// mockTurnRepository delegates to an in-memory store unless a hook is set.
type mockTurnRepository struct {
	store *memory.TurnRepository

	FindAvailableFunc         func(ctx context.Context) (*turn.Turn, error)
	CreateAvailableFunc       func(ctx context.Context, number int64, id string) (*turn.Turn, error)
	FindByIDFunc              func(ctx context.Context, id string) (*turn.Turn, error)
	UpdateStatusFunc          func(ctx context.Context, id string, status vo.TurnStatus) (*turn.Turn, error)
	UpdateHolderAndStatusFunc func(ctx context.Context, id, holder string, status vo.TurnStatus) (*turn.Turn, bool, error)
	MaxNumberFunc             func(ctx context.Context) (int64, error)
	ListAllFunc               func(ctx context.Context) ([]*turn.Turn, error)
	ClearFunc                 func(ctx context.Context) error

	createCalls atomic.Int32
}

func newMockTurnRepository() *mockTurnRepository {
	return &mockTurnRepository{store: memory.NewTurnRepository()}
}

func (m *mockTurnRepository) FindAvailable(ctx context.Context) (*turn.Turn, error) {
	if m.FindAvailableFunc != nil {
		return m.FindAvailableFunc(ctx)
	}
	return m.store.FindAvailable(ctx)
}

func (m *mockTurnRepository) CreateAvailable(ctx context.Context, number int64, id string) (*turn.Turn, error) {
	m.createCalls.Add(1)
	if m.CreateAvailableFunc != nil {
		return m.CreateAvailableFunc(ctx, number, id)
	}
	return m.store.CreateAvailable(ctx, number, id)
}

func (m *mockTurnRepository) FindByID(ctx context.Context, id string) (*turn.Turn, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return m.store.FindByID(ctx, id)
}

func (m *mockTurnRepository) UpdateStatus(ctx context.Context, id string, status vo.TurnStatus) (*turn.Turn, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return m.store.UpdateStatus(ctx, id, status)
}

func (m *mockTurnRepository) UpdateHolderAndStatus(ctx context.Context, id, holder string, status vo.TurnStatus) (*turn.Turn, bool, error) {
	if m.UpdateHolderAndStatusFunc != nil {
		return m.UpdateHolderAndStatusFunc(ctx, id, holder, status)
	}
	return m.store.UpdateHolderAndStatus(ctx, id, holder, status)
}

func (m *mockTurnRepository) MaxNumber(ctx context.Context) (int64, error) {
	if m.MaxNumberFunc != nil {
		return m.MaxNumberFunc(ctx)
	}
	return m.store.MaxNumber(ctx)
}

func (m *mockTurnRepository) ListAll(ctx context.Context) ([]*turn.Turn, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return m.store.ListAll(ctx)
}

func (m *mockTurnRepository) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return m.store.Clear(ctx)
}

type sequentialIDs struct {
	n atomic.Int64
}

func (s *sequentialIDs) NewID() string {
	return fmt.Sprintf("turn-%d", s.n.Add(1))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(e events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type recordingRelay struct {
	mu      sync.Mutex
	changes []dto.TurnChange
	err     error
}

func (r *recordingRelay) PublishTurnChanged(_ context.Context, change dto.TurnChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return r.err
}

func (r *recordingRelay) snapshot() []dto.TurnChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dto.TurnChange(nil), r.changes...)
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func (m *recordingMetrics) ObserveUseCase(useCase, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string][]string)
	}
	m.outcomes[useCase] = append(m.outcomes[useCase], outcome)
}

func (m *recordingMetrics) get(useCase string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes[useCase]...)
}

// collectingListener records every reference it receives.
type collectingListener struct {
	mu   sync.Mutex
	refs []dto.TurnReference
}

func (l *collectingListener) Deliver(ref dto.TurnReference) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refs = append(l.refs, ref)
	return nil
}

func (l *collectingListener) received() []dto.TurnReference {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]dto.TurnReference(nil), l.refs...)
}

type fixture struct {
	repo      *mockTurnRepository
	notifier  *fanout.Notifier
	publisher *recordingPublisher
	relay     *recordingRelay
	metrics   *recordingMetrics
	service   *TurnService
}

func newFixture(opts ...AllocatorOption) *fixture {
	f := &fixture{
		repo:      newMockTurnRepository(),
		notifier:  fanout.NewNotifier(logger.NewNop()),
		publisher: &recordingPublisher{},
		relay:     &recordingRelay{},
		metrics:   &recordingMetrics{},
	}
	base := []AllocatorOption{
		WithServerURL("http://turns.test"),
		WithStoreTimeout(time.Second),
		WithRelay(f.relay),
		WithMetrics(f.metrics),
	}
	f.service = NewTurnService(f.repo, &sequentialIDs{}, f.notifier, f.publisher, logger.NewNop(), append(base, opts...)...)
	return f
}
