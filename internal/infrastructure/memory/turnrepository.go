package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
)

// TurnRepository keeps turns in process memory. It is safe for concurrent
// use and hands out copies so callers never share state with the store.
type TurnRepository struct {
	mu          sync.RWMutex
	turns       map[string]*turn.Turn
	numbers     map[int64]string
	availableID string
}

func NewTurnRepository() *TurnRepository {
	return &TurnRepository{
		turns:   make(map[string]*turn.Turn),
		numbers: make(map[int64]string),
	}
}

func (r *TurnRepository) FindAvailable(ctx context.Context) (*turn.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.availableID == "" {
		return nil, nil
	}
	return r.turns[r.availableID].Clone(), nil
}

func (r *TurnRepository) CreateAvailable(ctx context.Context, number int64, id string) (*turn.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := turn.NewTurn(id, number)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.availableID != "" {
		return nil, turn.ErrConflict
	}
	if _, exists := r.turns[id]; exists {
		return nil, turn.ErrConflict
	}
	if _, exists := r.numbers[number]; exists {
		return nil, turn.ErrConflict
	}

	r.turns[id] = t
	r.numbers[number] = id
	r.availableID = id
	return t.Clone(), nil
}

func (r *TurnRepository) FindByID(ctx context.Context, id string) (*turn.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.turns[id].Clone(), nil
}

func (r *TurnRepository) UpdateStatus(ctx context.Context, id string, status vo.TurnStatus) (*turn.Turn, error) {
	t, _, err := r.update(ctx, id, func(t *turn.Turn) bool {
		return t.ChangeStatus(status)
	})
	return t, err
}

func (r *TurnRepository) UpdateHolderAndStatus(ctx context.Context, id, holder string, status vo.TurnStatus) (*turn.Turn, bool, error) {
	return r.update(ctx, id, func(t *turn.Turn) bool {
		if status.IsAssigned() {
			return t.AssignTo(holder)
		}
		return t.ChangeStatus(status)
	})
}

// update runs mutate on a copy of the stored turn and keeps the copy. The
// returned bool is whatever mutate reported.
func (r *TurnRepository) update(ctx context.Context, id string, mutate func(*turn.Turn) bool) (*turn.Turn, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.turns[id]
	if !ok {
		return nil, false, turn.ErrTurnNotFound
	}

	next := stored.Clone()
	if !mutate(next) {
		return stored.Clone(), false, nil
	}
	r.turns[id] = next
	if r.availableID == id && !next.IsAvailable() {
		r.availableID = ""
	}
	return next.Clone(), true, nil
}

func (r *TurnRepository) MaxNumber(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var max int64
	for n := range r.numbers {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (r *TurnRepository) ListAll(ctx context.Context) ([]*turn.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	list := make([]*turn.Turn, 0, len(r.turns))
	for _, t := range r.turns {
		list = append(list, t.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Number() > list[j].Number()
	})
	return list, nil
}

func (r *TurnRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.turns = make(map[string]*turn.Turn)
	r.numbers = make(map[int64]string)
	r.availableID = ""
	return nil
}

var _ turn.Repository = (*TurnRepository)(nil)
