package turn

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
)

// AnonymousHolder is bound when a turn is assigned without a name.
const AnonymousHolder = "anonymous"

type Turn struct {
	id        string
	number    int64
	holder    string
	status    vo.TurnStatus
	createdAt time.Time
	updatedAt time.Time
}

// NewTurn creates the next available turn.
func NewTurn(id string, number int64) (*Turn, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("turn id is required")
	}
	if number <= 0 {
		return nil, fmt.Errorf("turn number must be positive, got %d", number)
	}

	now := time.Now().UTC()
	return &Turn{
		id:        id,
		number:    number,
		status:    vo.StatusAvailable,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructTurn(
	id string,
	number int64,
	holder string,
	status vo.TurnStatus,
	createdAt, updatedAt time.Time,
) (*Turn, error) {
	if id == "" {
		return nil, fmt.Errorf("turn id cannot be empty")
	}
	if number <= 0 {
		return nil, fmt.Errorf("turn number must be positive, got %d", number)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	return &Turn{
		id:        id,
		number:    number,
		holder:    holder,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (t *Turn) ID() string {
	return t.id
}

func (t *Turn) Number() int64 {
	return t.number
}

func (t *Turn) Holder() string {
	return t.holder
}

func (t *Turn) Status() vo.TurnStatus {
	return t.status
}

func (t *Turn) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Turn) UpdatedAt() time.Time {
	return t.updatedAt
}

func (t *Turn) IsAvailable() bool {
	return t.status.IsAvailable()
}

// ChangeStatus moves the turn forward. It reports false and leaves the turn
// untouched when the transition is not allowed.
func (t *Turn) ChangeStatus(newStatus vo.TurnStatus) bool {
	if !t.status.CanTransitionTo(newStatus) {
		return false
	}
	t.status = newStatus
	t.updatedAt = time.Now().UTC()
	return true
}

// Reserve marks the turn as held. Reserving an assigned turn is a no-op.
func (t *Turn) Reserve() bool {
	return t.ChangeStatus(vo.StatusReserved)
}

// AssignTo binds holder and marks the turn assigned. The first assignment
// wins: an already assigned turn keeps its holder and AssignTo reports false.
func (t *Turn) AssignTo(holder string) bool {
	if !t.ChangeStatus(vo.StatusAssigned) {
		return false
	}
	t.holder = NormalizeHolder(holder)
	return true
}

// Clone returns an independent copy.
func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// NormalizeHolder trims name and falls back to AnonymousHolder.
func NormalizeHolder(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return AnonymousHolder
	}
	return name
}
