package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/application/turn/fanout"
	"github.com/taketurn/taketurn/internal/domain/shared/events"
	"github.com/taketurn/taketurn/internal/domain/turn"
	apperrors "github.com/taketurn/taketurn/internal/shared/errors"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

// TurnChangeRelay forwards local changes to other service instances.
type TurnChangeRelay interface {
	PublishTurnChanged(ctx context.Context, change dto.TurnChange) error
}

// AllocatorOption configures a TurnAllocator at construction.
type AllocatorOption func(*TurnAllocator)

// WithServerURL sets the base URL published with every turn reference.
func WithServerURL(url string) AllocatorOption {
	return func(a *TurnAllocator) { a.serverURL = url }
}

// WithStoreTimeout bounds each store call. Non-positive values keep
// DefaultStoreTimeout.
func WithStoreTimeout(d time.Duration) AllocatorOption {
	return func(a *TurnAllocator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRelay forwards allocation changes to other instances. Without a
// relay changes stay local.
func WithRelay(r TurnChangeRelay) AllocatorOption {
	return func(a *TurnAllocator) { a.relay = r }
}

// WithMetrics records allocator calls on m. A nil m is ignored.
func WithMetrics(m MetricsRecorder) AllocatorOption {
	return func(a *TurnAllocator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// TurnAllocator guarantees at most one available turn and keeps the
// notifier's cached reference in step with the store.
//
// Within one process the mutex serializes check-then-create. Across
// processes sharing a store, CreateAvailable's uniqueness rules decide and
// the loser re-reads the winner's turn.
type TurnAllocator struct {
	mu        sync.Mutex
	repo      turn.Repository
	ids       turn.IDGenerator
	notifier  *fanout.Notifier
	events    events.EventPublisher
	relay     TurnChangeRelay
	metrics   MetricsRecorder
	serverURL string
	timeout   time.Duration
	logger    logger.Interface
}

func NewTurnAllocator(
	repo turn.Repository,
	ids turn.IDGenerator,
	notifier *fanout.Notifier,
	publisher events.EventPublisher,
	log logger.Interface,
	opts ...AllocatorOption,
) *TurnAllocator {
	a := &TurnAllocator{
		repo:     repo,
		ids:      ids,
		notifier: notifier,
		events:   publisher,
		metrics:  nopMetrics{},
		timeout:  DefaultStoreTimeout,
		logger:   log.Named("allocator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.events == nil {
		a.events = events.NopPublisher{}
	}
	return a
}

// EnsureNext returns the available turn, creating it when the store has
// none. Listeners are notified when the available turn changed.
func (a *TurnAllocator) EnsureNext(ctx context.Context) (t *turn.Turn, err error) {
	start := time.Now()
	defer func() { observe(a.metrics, "ensure_next_turn", start, err) }()
	return a.ensure(ctx, false)
}

// Advance is EnsureNext followed by an unconditional broadcast. Lifecycle
// transitions use it so listeners always hear about them.
func (a *TurnAllocator) Advance(ctx context.Context) (*turn.Turn, error) {
	return a.ensure(ctx, true)
}

func (a *TurnAllocator) ensure(ctx context.Context, forceBroadcast bool) (*turn.Turn, error) {
	a.mu.Lock()
	t, created, err := a.ensureLocked(ctx)
	changed := false
	if err == nil {
		changed = a.notifier.Set(dto.NewTurnReference(a.serverURL, t))
	}
	a.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if changed || forceBroadcast {
		a.notifier.Broadcast()
	}
	if created {
		a.announceCreated(ctx, t)
	}
	return t, nil
}

// Refresh re-reads the available turn after another instance changed the
// store and notifies local listeners. It only publishes to the relay when
// it had to create the turn itself.
func (a *TurnAllocator) Refresh(ctx context.Context) error {
	_, err := a.ensure(ctx, false)
	return err
}

// Reset clears every turn and issues number 1 again.
func (a *TurnAllocator) Reset(ctx context.Context) (t *turn.Turn, err error) {
	start := time.Now()
	defer func() { observe(a.metrics, "reset_turns", start, err) }()

	a.mu.Lock()
	if _, err := callStore(ctx, a.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.repo.Clear(ctx)
	}); err != nil {
		a.mu.Unlock()
		a.logger.Errorw("failed to clear turns", "error", err)
		return nil, storageFault(err)
	}
	a.notifier.Clear()

	t, _, err = a.ensureLocked(ctx)
	if err == nil {
		a.notifier.Set(dto.NewTurnReference(a.serverURL, t))
	}
	a.mu.Unlock()

	if err != nil {
		return nil, err
	}

	a.notifier.Broadcast()
	a.relayChange(ctx, dto.TurnChange{Type: dto.ChangeReset, TurnID: t.ID(), Number: t.Number()})
	a.publishEvent(turn.NewTurnsResetEvent(t.ID()))
	a.logger.Infow("turns reset", "next_turn_id", t.ID(), "number", t.Number())
	return t, nil
}

// Current returns the cached reference without touching the store.
func (a *TurnAllocator) Current() (dto.TurnReference, bool) {
	return a.notifier.Current()
}

// ensureLocked must be called with a.mu held.
func (a *TurnAllocator) ensureLocked(ctx context.Context) (*turn.Turn, bool, error) {
	existing, err := a.findAvailable(ctx)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	max, err := callStore(ctx, a.timeout, a.repo.MaxNumber)
	if err != nil {
		a.logger.Errorw("failed to read max turn number", "error", err)
		return nil, false, storageFault(err)
	}

	id := a.ids.NewID()
	created, err := callStore(ctx, a.timeout, func(ctx context.Context) (*turn.Turn, error) {
		return a.repo.CreateAvailable(ctx, max+1, id)
	})
	if errors.Is(err, turn.ErrConflict) {
		// Another writer won the race; its turn is the one to hand out.
		a.logger.Infow("concurrent turn creation, re-reading available turn",
			"number", max+1,
			"error", err)
		winner, findErr := a.findAvailable(ctx)
		if findErr != nil {
			return nil, false, findErr
		}
		if winner != nil {
			return winner, false, nil
		}
		return nil, false, apperrors.NewConflictError("could not allocate the next turn").WithCause(err)
	}
	if err != nil {
		a.logger.Errorw("failed to create turn", "number", max+1, "error", err)
		return nil, false, storageFault(err)
	}

	a.logger.Infow("turn created", "turn_id", created.ID(), "number", created.Number())
	return created, true, nil
}

func (a *TurnAllocator) findAvailable(ctx context.Context) (*turn.Turn, error) {
	t, err := callStore(ctx, a.timeout, a.repo.FindAvailable)
	if err != nil {
		a.logger.Errorw("failed to find available turn", "error", err)
		return nil, storageFault(err)
	}
	return t, nil
}

func (a *TurnAllocator) announceCreated(ctx context.Context, t *turn.Turn) {
	a.relayChange(ctx, dto.TurnChange{Type: dto.ChangeAllocated, TurnID: t.ID(), Number: t.Number()})
	a.publishEvent(turn.NewTurnCreatedEvent(t))
}

// relayChange is best effort: other instances also converge on their next
// store read.
func (a *TurnAllocator) relayChange(ctx context.Context, change dto.TurnChange) {
	if a.relay == nil {
		return
	}
	if err := a.relay.PublishTurnChanged(ctx, change); err != nil {
		a.logger.Warnw("failed to relay turn change",
			"type", change.Type,
			"turn_id", change.TurnID,
			"error", err)
	}
}

func (a *TurnAllocator) publishEvent(event events.DomainEvent) {
	if err := a.events.Publish(event); err != nil {
		a.logger.Warnw("failed to dispatch event",
			"event_type", event.GetEventType(),
			"error", err)
	}
}
